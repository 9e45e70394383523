package vault

import (
	"context"
	"errors"
	"fmt"
	"path"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

var ErrSecretNotFound = errors.New("secret not found")

// SecretStore holds opaque secret blobs indexed by a secret id. It is a
// consistency domain of its own: writes commit immediately and independently
// of any metadata-store transaction.
type SecretStore interface {
	Create(ctx context.Context, secretID string, payload map[string]any) error
	Read(ctx context.Context, secretID string) (map[string]any, error)
	Update(ctx context.Context, secretID string, payload map[string]any) error
	Delete(ctx context.Context, secretID string) error
	List(ctx context.Context) ([]string, error)
}

type Config struct {
	Address   string
	Token     string
	CaPath    string
	MountPath string
}

type hashiCorpStore struct {
	client    *vault.Client
	mountPath string
	logger    *zap.Logger
}

func NewHashiCorpStore(cfg Config, logger *zap.Logger) (SecretStore, error) {
	conf := vault.DefaultConfig()
	conf.Address = cfg.Address

	if cfg.CaPath != "" {
		if err := conf.ConfigureTLS(&vault.TLSConfig{
			CAPath: cfg.CaPath,
		}); err != nil {
			return nil, err
		}
	}

	c, err := vault.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("new vault client: %w", err)
	}
	c.SetToken(cfg.Token)

	return &hashiCorpStore{
		client:    c,
		mountPath: cfg.MountPath,
		logger:    logger.Named("vault"),
	}, nil
}

func (s *hashiCorpStore) pathRef(secretID string) string {
	return path.Join(s.mountPath, secretID)
}

func (s *hashiCorpStore) Create(ctx context.Context, secretID string, payload map[string]any) error {
	_, err := s.client.Logical().WriteWithContext(ctx, s.pathRef(secretID), payload)
	if err != nil {
		return fmt.Errorf("vault write %s: %w", secretID, err)
	}
	return nil
}

func (s *hashiCorpStore) Read(ctx context.Context, secretID string) (map[string]any, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.pathRef(secretID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("vault read %s: %w", secretID, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, ErrSecretNotFound
	}
	return secret.Data, nil
}

func (s *hashiCorpStore) Update(ctx context.Context, secretID string, payload map[string]any) error {
	if _, err := s.Read(ctx, secretID); err != nil {
		return err
	}
	return s.Create(ctx, secretID, payload)
}

func (s *hashiCorpStore) Delete(ctx context.Context, secretID string) error {
	_, err := s.client.Logical().DeleteWithContext(ctx, s.pathRef(secretID))
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("vault delete %s: %w", secretID, err)
	}
	return nil
}

func (s *hashiCorpStore) List(ctx context.Context) ([]string, error) {
	secret, err := s.client.Logical().ListWithContext(ctx, s.mountPath)
	if err != nil {
		return nil, fmt.Errorf("vault list: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	raw, ok := secret.Data["keys"].([]any)
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}
