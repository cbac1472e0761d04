package auth

import (
	"context"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier は Firebase の ID トークンを検証します
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

func NewFirebaseVerifier(client *firebaseauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("invalid firebase token: %w", err)
	}
	return decoded.UID, nil
}
