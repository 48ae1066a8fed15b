package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type recordingTokenClient struct {
	plain, revocation int
}

func (c *recordingTokenClient) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	c.plain++
	return &firebaseauth.Token{UID: "uid-1"}, nil
}

func (c *recordingTokenClient) VerifyIDTokenAndCheckRevoked(context.Context, string) (*firebaseauth.Token, error) {
	c.revocation++
	return &firebaseauth.Token{UID: "uid-1"}, nil
}

func TestFirebaseVerifierChecksRevocationWhenEnabled(t *testing.T) {
	client := &recordingTokenClient{}
	verifier := &FirebaseVerifier{client: client, checkRevoked: true}
	if _, err := verifier.VerifyIDToken(context.Background(), "token"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if client.revocation != 1 || client.plain != 0 {
		t.Fatalf("expected revocation check, got plain=%d revocation=%d", client.plain, client.revocation)
	}

	verifier.checkRevoked = false
	if _, err := verifier.VerifyIDToken(context.Background(), "token"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if client.plain != 1 {
		t.Fatalf("expected plain verification, got %d", client.plain)
	}
}

func TestFirebaseVerifierRequiresClient(t *testing.T) {
	var verifier *FirebaseVerifier
	if _, err := verifier.VerifyIDToken(context.Background(), "token"); err == nil {
		t.Fatalf("expected error from nil verifier")
	}
}

func TestRequireMember_RevokedToken(t *testing.T) {
	authn := NewAuthenticator(&stubTokenVerifier{err: ErrTokenRevoked})
	handler := authn.RequireMember()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not execute on revoked token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer revoked-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "token_revoked" {
		t.Fatalf("expected token_revoked error, got %v", body["error"])
	}
}
