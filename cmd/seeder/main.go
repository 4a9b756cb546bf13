package main

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/config"
	"github.com/nmduc/chatterbox/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var demoNames = []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

func main() {
	// Load config
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	log.Printf("🌱 Seeding %d users...", len(demoNames))

	users := make([]model.User, 0, len(demoNames))
	for i, name := range demoNames {
		var existing model.User
		if err := db.Where("name = ?", name).First(&existing).Error; err == nil {
			users = append(users, existing)
			continue
		}

		now := time.Now()
		user := model.User{
			ID:         uuid.New(),
			Name:       name,
			ProfilePic: model.DefaultProfilePic,
			Status:     model.StatusOffline,
			LastSeen:   &now,
		}
		if i%2 == 0 {
			user.Status = model.StatusOnline
		}

		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("❌ Failed to create user %s: %v", name, err)
		}
		users = append(users, user)
		log.Printf("✅ Created user: %s", name)
	}

	group := seedGroup(db, users)
	seedDirects(db, users)
	seedMessages(db, group, users)

	log.Println("🎉 Seeding completed!")
}

// seedGroup creates the shared group conversation and adds every user
func seedGroup(db *gorm.DB, users []model.User) model.Conversation {
	var group model.Conversation
	err := db.Where("name = ? AND is_group = ?", model.GroupName, true).
		Attrs(model.Conversation{ID: uuid.New(), IsGroup: true}).
		FirstOrCreate(&group).Error
	if err != nil {
		log.Fatalf("❌ Failed to create group: %v", err)
	}

	for _, u := range users {
		var count int64
		db.Model(&model.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ?", group.ID, u.ID).
			Count(&count)
		if count > 0 {
			continue
		}
		db.Create(&model.ConversationMember{
			ID:             uuid.New(),
			ConversationID: group.ID,
			UserID:         u.ID,
			JoinedAt:       time.Now(),
		})
	}

	log.Printf("✅ Group '%s' ready with %d members", model.GroupName, len(users))
	return group
}

// seedDirects creates the direct conversation for every user pair
func seedDirects(db *gorm.DB, users []model.User) {
	created := 0
	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			if directExists(db, users[i].ID, users[j].ID) {
				continue
			}

			conv := model.Conversation{ID: uuid.New(), IsGroup: false}
			if err := db.Create(&conv).Error; err != nil {
				log.Fatalf("❌ Failed to create direct conversation: %v", err)
			}
			for _, uid := range []uuid.UUID{users[i].ID, users[j].ID} {
				db.Create(&model.ConversationMember{
					ID:             uuid.New(),
					ConversationID: conv.ID,
					UserID:         uid,
					JoinedAt:       time.Now(),
				})
			}
			created++
		}
	}
	log.Printf("✅ Direct conversations ready (%d created)", created)
}

func directExists(db *gorm.DB, a, b uuid.UUID) bool {
	var count int64
	db.Raw(`
		SELECT COUNT(*)
		FROM conversations c
		JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.user_id = ?
		JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.user_id = ?
		WHERE NOT c.is_group
	`, a, b).Scan(&count)
	return count > 0
}

// seedMessages drops a few demo messages into the group, including one
// from an anonymous sender
func seedMessages(db *gorm.DB, group model.Conversation, users []model.User) {
	var count int64
	db.Model(&model.Message{}).Where("conversation_id = ?", group.ID).Count(&count)
	if count > 0 {
		return
	}

	base := time.Now().Add(-10 * time.Minute)
	messages := []model.Message{
		{
			ID:             uuid.New(),
			ConversationID: group.ID,
			SenderID:       &users[0].ID,
			Content:        "Welcome to " + model.GroupName + "! 🎉",
			Type:           model.MessageTypeText,
			CreatedAt:      base,
		},
		{
			ID:             uuid.New(),
			ConversationID: group.ID,
			SenderID:       &users[1].ID,
			Content:        "Hey everyone 👋",
			Type:           model.MessageTypeText,
			CreatedAt:      base.Add(1 * time.Minute),
		},
		{
			ID:             uuid.New(),
			ConversationID: group.ID,
			SenderID:       nil, // anonymous
			Content:        "Someone shy says hi",
			Type:           model.MessageTypeText,
			CreatedAt:      base.Add(2 * time.Minute),
		},
	}

	for _, msg := range messages {
		if err := db.Create(&msg).Error; err != nil {
			log.Printf("❌ Failed to create message: %v", err)
		}
	}
	log.Printf("✅ Seeded %d demo messages in '%s'", len(messages), model.GroupName)
}
