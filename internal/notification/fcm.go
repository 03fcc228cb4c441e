package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMService struct {
	client *messaging.Client
}

// NewFCMService prefers base64 encoded credentials in encodedCreds and falls
// back to the service account file at localFilePath.
func NewFCMService(ctx context.Context, encodedCreds, localFilePath string) (*FCMService, error) {
	var opt option.ClientOption

	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("FCM Service: Initializing from FCM_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("FCM Service: Initializing from local file: %s.", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendPush delivers one message per token. It fails only when every token
// failed.
func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	successCount := 0
	failureCount := 0

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}
		switch token.Platform {
		case "android", "":
			message.Android = &messaging.AndroidConfig{
				Priority:     "high",
				Notification: &messaging.AndroidNotification{Sound: "default"},
			}
		case "ios":
			message.APNS = &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
			}
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			log.Printf("FCM: Failed to send to token %s: %v", token.Token, err)
			failureCount++
		} else {
			successCount++
		}
	}

	log.Printf("FCM: Sent %d messages, %d failed", successCount, failureCount)

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all push notifications failed")
	}
	return nil
}
