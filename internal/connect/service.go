package connect

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

// Credentials are refreshed this far ahead of their expiration date so a
// checkout never has to wait on a token grant.
const refreshWindow = 30 * 24 * time.Hour

const settingKeyPrefix = "pagbank_connect_data_"

// Data is the per-environment merchant credential record. It is only ever
// persisted complete; Save rejects any record with an empty required field.
type Data struct {
	ApplicationID  string            `json:"application_id"`
	Environment    enums.Environment `json:"environment"`
	AccessToken    string            `json:"access_token"`
	ExpirationDate time.Time         `json:"expiration_date"`
	RefreshToken   string            `json:"refresh_token"`
	Scope          string            `json:"scope"`
	AccountID      string            `json:"account_id"`
	PublicKey      string            `json:"public_key"`
}

type settingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

type oauthAPI interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*pagbank.OAuthCredentials, error)
	CreatePublicKey(ctx context.Context, accessToken string) (*pagbank.PublicKeyResponse, error)
}

// Service owns the merchant credential for one provider environment. It
// satisfies the provider client's token source, refreshing grants behind
// the scenes.
type Service struct {
	settings    settingsStore
	environment enums.Environment
	logger      *logger.Logger

	mu  sync.Mutex
	api oauthAPI
}

// ServiceParams groups dependencies for the connect service.
type ServiceParams struct {
	Settings    settingsStore
	Environment enums.Environment
	Logger      *logger.Logger
}

// NewService constructs a connect credential service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings store required")
	}
	if !params.Environment.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "environment required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		settings:    params.Settings,
		environment: params.Environment,
		logger:      params.Logger,
	}, nil
}

// BindAPI attaches the provider client used for token refresh. The client
// itself is built with this service as its token source, so the two are
// wired in two steps.
func (s *Service) BindAPI(api oauthAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api
}

// SettingKey returns the settings key holding the credential for env.
func SettingKey(env enums.Environment) string {
	return settingKeyPrefix + env.String()
}

// AccessToken returns a currently valid bearer token for the environment,
// refreshing first if needed.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "pagbank account is not connected")
	}
	return data.AccessToken, nil
}

// Data returns the stored credential, or nil when none is saved or the
// stored one has already expired. A credential inside the refresh window
// is refreshed before being returned.
func (s *Service) Data(ctx context.Context) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(ctx)
	if err != nil || data == nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !data.ExpirationDate.After(now) {
		s.logger.Warn(ctx, "stored pagbank credential has expired, reconnect required")
		return nil, nil
	}
	if data.ExpirationDate.Sub(now) > refreshWindow {
		return data, nil
	}

	refreshed, err := s.refresh(ctx, data)
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Connected reports whether a usable credential exists.
func (s *Service) Connected(ctx context.Context) bool {
	data, err := s.Data(ctx)
	return err == nil && data != nil
}

// Complete finishes an authorization-code exchange: it fetches the public
// key under the fresh grant, persists the merged credential and returns it.
func (s *Service) Complete(ctx context.Context, creds *pagbank.OAuthCredentials) (*Data, error) {
	if creds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credentials required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.merge(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, data); err != nil {
		return nil, err
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"environment": s.environment.String(),
		"account_id":  data.AccountID,
	}), "pagbank account connected")
	return data, nil
}

// Save validates and persists a credential record.
func (s *Service) Save(ctx context.Context, data *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, data)
}

func (s *Service) save(ctx context.Context, data *Data) error {
	if data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "credential is required")
	}

	var verr error
	if strings.TrimSpace(data.ApplicationID) == "" {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "application_id is required"))
	}
	if !data.Environment.IsValid() {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "environment is required"))
	}
	if strings.TrimSpace(data.AccessToken) == "" {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "access_token is required"))
	}
	if data.ExpirationDate.IsZero() {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "expiration_date is required"))
	}
	if strings.TrimSpace(data.RefreshToken) == "" {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "refresh_token is required"))
	}
	if strings.TrimSpace(data.Scope) == "" {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "scope is required"))
	}
	if strings.TrimSpace(data.AccountID) == "" {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "account_id is required"))
	}
	if strings.TrimSpace(data.PublicKey) == "" {
		verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "public_key is required"))
	}
	if verr != nil {
		return verr
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding credential")
	}
	if err := s.settings.PutSetting(ctx, SettingKey(data.Environment), string(encoded)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting credential")
	}
	return nil
}

func (s *Service) load(ctx context.Context) (*Data, error) {
	raw, err := s.settings.GetSetting(ctx, SettingKey(s.environment))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading credential")
	}
	if raw == "" {
		return nil, nil
	}
	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding credential")
	}
	return &data, nil
}

func (s *Service) refresh(ctx context.Context, old *Data) (*Data, error) {
	if s.api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client not bound")
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"environment": s.environment.String(),
		"expires_at":  old.ExpirationDate,
	}), "refreshing pagbank credential")

	creds, err := s.api.RefreshAccessToken(ctx, old.RefreshToken)
	if err != nil {
		return nil, err
	}
	data, err := s.merge(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Service) merge(ctx context.Context, creds *pagbank.OAuthCredentials) (*Data, error) {
	if s.api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client not bound")
	}
	key, err := s.api.CreatePublicKey(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	return &Data{
		ApplicationID:  creds.ApplicationID,
		Environment:    creds.Environment,
		AccessToken:    creds.AccessToken,
		ExpirationDate: creds.ExpirationDate,
		RefreshToken:   creds.RefreshToken,
		Scope:          creds.Scope,
		AccountID:      creds.AccountID,
		PublicKey:      key.PublicKey,
	}, nil
}
