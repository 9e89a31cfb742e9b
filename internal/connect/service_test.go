package connect

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

type memSettings struct {
	values map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{values: map[string]string{}}
}

func (m *memSettings) GetSetting(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memSettings) PutSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

type stubAPI struct {
	refreshCalls int
	refreshed    *pagbank.OAuthCredentials
	refreshErr   error
	publicKey    string
}

func (s *stubAPI) RefreshAccessToken(_ context.Context, refreshToken string) (*pagbank.OAuthCredentials, error) {
	s.refreshCalls++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshed, nil
}

func (s *stubAPI) CreatePublicKey(_ context.Context, _ string) (*pagbank.PublicKeyResponse, error) {
	return &pagbank.PublicKeyResponse{PublicKey: s.publicKey}, nil
}

func newTestService(t *testing.T, settings *memSettings, api *stubAPI) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Settings:    settings,
		Environment: enums.EnvironmentSandbox,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	if api != nil {
		svc.BindAPI(api)
	}
	return svc
}

func storedCredential(expiresInDays int) *Data {
	return &Data{
		ApplicationID:  "pagbank-demo-sandbox",
		Environment:    enums.EnvironmentSandbox,
		AccessToken:    "stored-token",
		ExpirationDate: time.Now().UTC().Add(time.Duration(expiresInDays) * 24 * time.Hour),
		RefreshToken:   "stored-refresh",
		Scope:          pagbank.ConnectScopes,
		AccountID:      "ACCO-1",
		PublicKey:      "stored-key",
	}
}

func TestDataNotConnected(t *testing.T) {
	svc := newTestService(t, newMemSettings(), &stubAPI{})

	data, err := svc.Data(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = svc.AccessToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestDataOutsideRefreshWindow(t *testing.T) {
	settings := newMemSettings()
	api := &stubAPI{}
	svc := newTestService(t, settings, api)
	require.NoError(t, svc.Save(context.Background(), storedCredential(40)))

	data, err := svc.Data(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "stored-token", data.AccessToken)
	assert.Equal(t, 0, api.refreshCalls)
}

func TestDataRefreshesInsideWindow(t *testing.T) {
	settings := newMemSettings()
	api := &stubAPI{
		refreshed: &pagbank.OAuthCredentials{
			ApplicationID:  "pagbank-demo-sandbox",
			Environment:    enums.EnvironmentSandbox,
			AccessToken:    "fresh-token",
			ExpirationDate: time.Now().UTC().Add(120 * 24 * time.Hour),
			RefreshToken:   "fresh-refresh",
			Scope:          pagbank.ConnectScopes,
			AccountID:      "ACCO-1",
		},
		publicKey: "fresh-key",
	}
	svc := newTestService(t, settings, api)
	require.NoError(t, svc.Save(context.Background(), storedCredential(20)))

	data, err := svc.Data(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, 1, api.refreshCalls)
	assert.Equal(t, "fresh-token", data.AccessToken)
	assert.Equal(t, "fresh-key", data.PublicKey)

	token, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, api.refreshCalls)
}

func TestDataExpiredReturnsNilWithoutRefresh(t *testing.T) {
	settings := newMemSettings()
	api := &stubAPI{}
	svc := newTestService(t, settings, api)
	expired := storedCredential(90)
	expired.ExpirationDate = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, svc.Save(context.Background(), expired))

	data, err := svc.Data(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 0, api.refreshCalls)
	assert.False(t, svc.Connected(context.Background()))
}

func TestSaveValidatesRequiredFields(t *testing.T) {
	svc := newTestService(t, newMemSettings(), &stubAPI{})

	err := svc.Save(context.Background(), &Data{Environment: enums.EnvironmentSandbox})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 7)
	assert.Contains(t, err.Error(), "public_key is required")
}

func TestCompletePersistsMergedCredential(t *testing.T) {
	settings := newMemSettings()
	api := &stubAPI{publicKey: "issued-key"}
	svc := newTestService(t, settings, api)

	data, err := svc.Complete(context.Background(), &pagbank.OAuthCredentials{
		ApplicationID:  "pagbank-demo-sandbox",
		Environment:    enums.EnvironmentSandbox,
		AccessToken:    "granted-token",
		ExpirationDate: time.Now().UTC().Add(180 * 24 * time.Hour),
		RefreshToken:   "granted-refresh",
		Scope:          pagbank.ConnectScopes,
		AccountID:      "ACCO-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "issued-key", data.PublicKey)
	assert.NotEmpty(t, settings.values[SettingKey(enums.EnvironmentSandbox)])

	token, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "granted-token", token)
}
