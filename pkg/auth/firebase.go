package auth

import (
	"context"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

// NewFirebaseVerifier wraps a Firebase Auth client.
func NewFirebaseVerifier(client *firebaseauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify checks the ID token signature, audience and expiry.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Caller, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := token.Claims["email"].(string)
	return &Caller{UID: token.UID, Email: email}, nil
}
