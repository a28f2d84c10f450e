package deviceauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"trustlink/config"
	"trustlink/models"
	"trustlink/utils"
)

func init() {
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.AuthCodeLifetime = 5 * time.Minute
	config.AppConfig.DeviceCodeLifetime = 5 * time.Minute
}

func testClient() *models.Client {
	return &models.Client{
		ClientID:                  "CL1",
		Name:                      "test client",
		Enabled:                   true,
		AllowedGrantTypes:         []string{models.GrantTypePassword, models.GrantTypeDeviceLogin},
		AuthorizationCodeLifetime: 5 * time.Minute,
	}
}

type testEnv struct {
	service      *Service
	devices      *fakeDeviceRepo
	users        *fakeUserRepo
	transactions *memTransactionStore
	challenges   *memChallengeStore
	otp          *fakeOTPVerifier
	notifier     *fakeNotifier
}

func newTestEnv(clients ...*models.Client) *testEnv {
	if len(clients) == 0 {
		clients = []*models.Client{testClient()}
	}
	env := &testEnv{
		devices:      newFakeDeviceRepo(),
		users:        newFakeUserRepo(),
		transactions: newMemTransactionStore(),
		challenges:   newMemChallengeStore(),
		otp:          newFakeOTPVerifier(),
		notifier:     &fakeNotifier{},
	}
	env.service = &Service{
		Devices:      env.devices,
		Users:        env.users,
		Clients:      newFakeClientRepo(clients...),
		Transactions: env.transactions,
		Challenges:   env.challenges,
		OTP:          env.otp,
		Notifier:     env.notifier,
	}
	return env
}

func accessTokenFor(t *testing.T, subject, clientID string) string {
	t.Helper()
	token, err := utils.GenerateToken(subject, clientID, []string{utils.ScopeAuthentication, "profile"}, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	return token
}

func validationKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return verr.Kind
}

func TestInitiateRegistration(t *testing.T) {
	env := newTestEnv()
	token := accessTokenFor(t, "U1", "CL1")

	result, err := env.service.InitiateRegistration(context.Background(), RegistrationInitRequest{
		AccessToken:         token,
		Mode:                "fingerprint",
		DeviceID:            "D1",
		CodeChallenge:       "C1",
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		t.Fatalf("InitiateRegistration() error = %v", err)
	}

	tx := result.Transaction
	if tx.Code == "" {
		t.Fatal("expected the store to generate a code")
	}
	if tx.DeviceID != "D1" || tx.SubjectID != "U1" || tx.ClientID != "CL1" {
		t.Fatalf("unexpected transaction binding: %+v", tx)
	}
	if tx.InteractionMode != models.InteractionModeFingerprint {
		t.Fatalf("InteractionMode = %v, want fingerprint", tx.InteractionMode)
	}
	if len(result.RequestedScopes) == 0 {
		t.Fatal("expected requested scopes from token")
	}
	if _, ok := result.Principal["scope"]; ok {
		t.Fatal("principal must not carry the scope claim")
	}
	if _, ok := result.Principal["client_id"]; ok {
		t.Fatal("principal must not carry the client_id claim")
	}
	if result.Principal["sub"] != "U1" {
		t.Fatalf("principal sub = %v, want U1", result.Principal["sub"])
	}
}

func TestInitiateRegistrationFailures(t *testing.T) {
	env := newTestEnv()
	token := accessTokenFor(t, "U1", "CL1")

	cases := []struct {
		name string
		req  RegistrationInitRequest
		want ErrorKind
	}{
		{
			name: "garbage token",
			req:  RegistrationInitRequest{AccessToken: "not-a-token", Mode: "pin", DeviceID: "D1", CodeChallenge: "C1", CodeChallengeMethod: "S256"},
			want: ErrorInvalidToken,
		},
		{
			name: "missing mode",
			req:  RegistrationInitRequest{AccessToken: token, DeviceID: "D1", CodeChallenge: "C1", CodeChallengeMethod: "S256"},
			want: ErrorInvalidRequest,
		},
		{
			name: "missing device id",
			req:  RegistrationInitRequest{AccessToken: token, Mode: "pin", CodeChallenge: "C1", CodeChallengeMethod: "S256"},
			want: ErrorInvalidRequest,
		},
		{
			name: "unknown mode",
			req:  RegistrationInitRequest{AccessToken: token, Mode: "retina", DeviceID: "D1", CodeChallenge: "C1", CodeChallengeMethod: "S256"},
			want: ErrorInvalidRequest,
		},
		{
			name: "unknown client",
			req:  RegistrationInitRequest{AccessToken: accessTokenFor(t, "U1", "CL-unknown"), Mode: "pin", DeviceID: "D1", CodeChallenge: "C1", CodeChallengeMethod: "S256"},
			want: ErrorUnauthorizedClient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.InitiateRegistration(context.Background(), tc.req)
			if got := validationKind(t, err); got != tc.want {
				t.Fatalf("kind = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInitiateRegistrationRejectsTokenWithoutAuthScope(t *testing.T) {
	env := newTestEnv()
	token, err := utils.GenerateToken("U1", "CL1", []string{"profile"}, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = env.service.InitiateRegistration(context.Background(), RegistrationInitRequest{
		AccessToken:         token,
		Mode:                "fingerprint",
		DeviceID:            "D1",
		CodeChallenge:       "C1",
		CodeChallengeMethod: "S256",
	})
	if got := validationKind(t, err); got != ErrorInvalidToken {
		t.Fatalf("kind = %v, want invalid_token", got)
	}
}

// enrollDevice runs a full init + complete round trip and returns the result.
func enrollDevice(t *testing.T, env *testEnv, subject, deviceID string) (*RegistrationCompleteResult, RegistrationCompleteRequest) {
	t.Helper()
	ctx := context.Background()
	token := accessTokenFor(t, subject, "CL1")

	verifier := "verifier-for-" + deviceID
	initResult, err := env.service.InitiateRegistration(ctx, RegistrationInitRequest{
		AccessToken:         token,
		Mode:                "fingerprint",
		DeviceID:            deviceID,
		CodeChallenge:       ComputeCodeChallenge(verifier),
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		t.Fatalf("InitiateRegistration() error = %v", err)
	}
	code := initResult.Transaction.Code

	key := generateTestKey(t)
	env.otp.issue(subject, deviceID, "123456")

	req := RegistrationCompleteRequest{
		AccessToken:   token,
		CodeSignature: signChallenge(t, key, code),
		CodeVerifier:  verifier,
		PublicKey:     string(spkiPEM(t, key)),
		OTPCode:       "123456",
		Code:          code,
		DeviceName:    "Test Phone",
	}
	result, err := env.service.CompleteRegistration(ctx, req)
	if err != nil {
		t.Fatalf("CompleteRegistration() error = %v", err)
	}
	return result, req
}

func TestCompleteRegistration(t *testing.T) {
	env := newTestEnv()
	result, _ := enrollDevice(t, env, "U1", "D1")

	if result.DeviceID != "D1" || result.SubjectID != "U1" {
		t.Fatalf("unexpected binding: %+v", result)
	}
	if result.DeviceName != "Test Phone" {
		t.Fatalf("DeviceName = %q", result.DeviceName)
	}
	if result.InteractionMode != models.InteractionModeFingerprint {
		t.Fatalf("InteractionMode = %v", result.InteractionMode)
	}
}

func TestCompleteRegistrationReplayBurnsCode(t *testing.T) {
	env := newTestEnv()
	_, req := enrollDevice(t, env, "U1", "D1")

	// Replaying the identical, otherwise-valid completion must fail: the
	// transaction was consumed by the first redemption.
	env.otp.issue("U1", "D1", "123456")
	_, err := env.service.CompleteRegistration(context.Background(), req)
	if got := validationKind(t, err); got != ErrorInvalidGrant {
		t.Fatalf("kind = %v, want invalid_grant", got)
	}
}

func TestCompleteRegistrationFailedAttemptBurnsCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	token := accessTokenFor(t, "U1", "CL1")

	verifier := "the-verifier"
	initResult, err := env.service.InitiateRegistration(ctx, RegistrationInitRequest{
		AccessToken:         token,
		Mode:                "fingerprint",
		DeviceID:            "D1",
		CodeChallenge:       ComputeCodeChallenge(verifier),
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		t.Fatalf("InitiateRegistration() error = %v", err)
	}
	code := initResult.Transaction.Code
	key := generateTestKey(t)
	env.otp.issue("U1", "D1", "123456")

	// First attempt fails PKCE with a wrong verifier.
	req := RegistrationCompleteRequest{
		AccessToken:   token,
		CodeSignature: signChallenge(t, key, code),
		CodeVerifier:  "wrong-verifier",
		PublicKey:     string(spkiPEM(t, key)),
		OTPCode:       "123456",
		Code:          code,
		DeviceName:    "Test Phone",
	}
	_, err = env.service.CompleteRegistration(ctx, req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != ErrorInvalidGrant {
		t.Fatalf("expected invalid_grant, got %v", err)
	}
	if verr.Description != "Transformed code verifier does not match code challenge" {
		t.Fatalf("unexpected description: %q", verr.Description)
	}

	// Second attempt with the correct verifier still fails: the failed
	// completion consumed the code.
	req.CodeVerifier = verifier
	_, err = env.service.CompleteRegistration(ctx, req)
	if got := validationKind(t, err); got != ErrorInvalidGrant {
		t.Fatalf("kind = %v, want invalid_grant", got)
	}
}

func TestCompleteRegistrationExpiredTransaction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	token := accessTokenFor(t, "U1", "CL1")

	verifier := "the-verifier"
	initResult, err := env.service.InitiateRegistration(ctx, RegistrationInitRequest{
		AccessToken:         token,
		Mode:                "fingerprint",
		DeviceID:            "D1",
		CodeChallenge:       ComputeCodeChallenge(verifier),
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		t.Fatalf("InitiateRegistration() error = %v", err)
	}
	code := initResult.Transaction.Code
	key := generateTestKey(t)
	env.otp.issue("U1", "D1", "123456")

	// Move the clock past the code lifetime; correct proof no longer helps.
	env.service.Now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	_, err = env.service.CompleteRegistration(ctx, RegistrationCompleteRequest{
		AccessToken:   token,
		CodeSignature: signChallenge(t, key, code),
		CodeVerifier:  verifier,
		PublicKey:     string(spkiPEM(t, key)),
		OTPCode:       "123456",
		Code:          code,
		DeviceName:    "Test Phone",
	})
	if got := validationKind(t, err); got != ErrorInvalidGrant {
		t.Fatalf("kind = %v, want invalid_grant", got)
	}
}

func TestCompleteRegistrationMissingParameters(t *testing.T) {
	env := newTestEnv()
	token := accessTokenFor(t, "U1", "CL1")

	_, err := env.service.CompleteRegistration(context.Background(), RegistrationCompleteRequest{
		AccessToken: token,
		Code:        "some-code",
		// everything else missing
	})
	if got := validationKind(t, err); got != ErrorInvalidRequest {
		t.Fatalf("kind = %v, want invalid_request", got)
	}
}

func TestCompleteRegistrationClientMustAllowPasswordGrant(t *testing.T) {
	restricted := testClient()
	restricted.AllowedGrantTypes = []string{"authorization_code"}
	env := newTestEnv(restricted)
	token := accessTokenFor(t, "U1", "CL1")

	_, err := env.service.CompleteRegistration(context.Background(), RegistrationCompleteRequest{
		AccessToken:   token,
		CodeSignature: "sig",
		CodeVerifier:  "verifier",
		PublicKey:     "key",
		OTPCode:       "123456",
		Code:          "code",
	})
	if got := validationKind(t, err); got != ErrorUnauthorizedClient {
		t.Fatalf("kind = %v, want unauthorized_client", got)
	}
}

func TestCompleteRegistrationConcurrentRedemption(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	token := accessTokenFor(t, "U1", "CL1")

	verifier := "the-verifier"
	initResult, err := env.service.InitiateRegistration(ctx, RegistrationInitRequest{
		AccessToken:         token,
		Mode:                "fingerprint",
		DeviceID:            "D1",
		CodeChallenge:       ComputeCodeChallenge(verifier),
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		t.Fatalf("InitiateRegistration() error = %v", err)
	}
	code := initResult.Transaction.Code
	key := generateTestKey(t)
	env.otp.issue("U1", "D1", "123456")

	req := RegistrationCompleteRequest{
		AccessToken:   token,
		CodeSignature: signChallenge(t, key, code),
		CodeVerifier:  verifier,
		PublicKey:     string(spkiPEM(t, key)),
		OTPCode:       "123456",
		Code:          code,
		DeviceName:    "Test Phone",
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := env.service.CompleteRegistration(ctx, req)
			results <- err
		}()
	}

	var successes, grantFailures int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			successes++
			continue
		}
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Kind == ErrorInvalidGrant {
			grantFailures++
		}
	}
	if successes != 1 || grantFailures != 1 {
		t.Fatalf("want exactly one winner, got %d successes and %d invalid_grant", successes, grantFailures)
	}
}
