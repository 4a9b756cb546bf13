package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/repository"
	"google.golang.org/api/option"
)

// NotificationService sends FCM pushes to members who are not connected
// when a message arrives. Nil-safe: without credentials it stays disabled.
type NotificationService struct {
	client     *messaging.Client
	deviceRepo *repository.DeviceRepository
}

// NewNotificationService creates a new FCM notification service
func NewNotificationService(credentialsFile string, deviceRepo *repository.DeviceRepository) (*NotificationService, error) {
	if credentialsFile == "" {
		log.Println("⚠️ Firebase credentials not provided, push notifications disabled")
		return nil, nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		// Log warning instead of error to not block server startup
		log.Printf("⚠️ Failed to initialize Firebase app: %v (push notifications disabled)", err)
		return nil, nil
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("⚠️ Failed to get messaging client: %v", err)
		return nil, nil
	}

	log.Println("✅ Firebase FCM initialized")
	return &NotificationService{
		client:     client,
		deviceRepo: deviceRepo,
	}, nil
}

// SendMessageNotification sends a push notification for a new chat message
func (s *NotificationService) SendMessageNotification(ctx context.Context, receiverID uuid.UUID, senderName string, content string, conversationID uuid.UUID) error {
	if s == nil || s.client == nil {
		return nil
	}

	devices, err := s.deviceRepo.ListByUser(receiverID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.FCMToken)
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: senderName,
			Body:  content,
		},
		Data: map[string]string{
			"type":            "new-message",
			"conversation_id": conversationID.String(),
			"sender_name":     senderName,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	br, err := s.client.SendMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if !resp.Success {
				log.Printf("⚠️ FCM failure for token %s: %v", tokens[idx], resp.Error)
			}
		}
	}

	return nil
}
