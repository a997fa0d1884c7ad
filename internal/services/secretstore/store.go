package secretstore

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/skylite-dev/skylite/internal/logging"
)

// LatestVersion is the virtual version id resolving to the numerically
// greatest version present on a secret.
const LatestVersion = "latest"

// defaultPayload is stored in the single version of a secret that was
// auto-created by a non-strict AccessVersion miss.
var defaultPayload = []byte("placeholder")

// Store is an in-memory emulation of a versioned secret service. Secrets
// are addressed by resource paths of the form
// projects/{project}/secrets/{secret_id}[/versions/{version}].
type Store struct {
	mu      sync.RWMutex
	strict  bool
	secrets map[string]*Secret
	logger  logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithStrict makes AccessVersion fail with *NotFoundError when the secret
// does not exist instead of auto-creating it.
func WithStrict() Option {
	return func(s *Store) { s.strict = true }
}

// WithLogger attaches a structured logger to the store.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates an empty secret store.
func New(opts ...Option) *Store {
	s := &Store{
		secrets: make(map[string]*Secret),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strict reports whether the store was built with WithStrict.
func (s *Store) Strict() bool {
	return s.strict
}

// CreateSecret explicitly creates a secret under the given parent path
// (projects/{project}). Re-creating an existing secret refreshes its
// labels but keeps any versions already added; callers should not depend
// on the overwrite behaviour.
func (s *Store) CreateSecret(parent, secretID string, labels map[string]string) (*Secret, error) {
	project, err := parseProjectPath(parent)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	secret := s.ensureSecretLocked(project, secretID)
	secret.mu.Lock()
	secret.labels = make(map[string]string, len(labels))
	for k, v := range labels {
		secret.labels[k] = v
	}
	secret.mu.Unlock()
	return secret, nil
}

// AddVersion appends a new version holding payload to the secret named by
// parent (projects/{project}/secrets/{secret_id}), creating the secret if
// absent. Version ids start at "1" and increase by one per call.
func (s *Store) AddVersion(parent string, payload []byte) (*SecretVersion, error) {
	project, secretID, err := parseSecretPath(parent)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	secret := s.ensureSecretLocked(project, secretID)
	s.mu.Unlock()

	version := secret.addVersion(payload)
	s.logger.Debug("secret version added",
		logging.String("secret", secretID),
		logging.String("version", version.id),
	)
	return version, nil
}

// AccessVersion resolves a full version path
// (projects/{project}/secrets/{secret_id}/versions/{version}). The version
// may be LatestVersion, which resolves to the numerically greatest id. A
// malformed path is a *PathError regardless of mode. A missing secret is a
// *NotFoundError in strict mode; otherwise the secret is created with one
// placeholder version and that version is returned. A secret that exists
// but has no versions, or an absent concrete version id, is *NotFoundError
// in either mode.
func (s *Store) AccessVersion(name string) (*SecretVersion, error) {
	project, secretID, versionID, err := parseVersionPath(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	secret, ok := s.secrets[secretKey(project, secretID)]
	if !ok {
		if s.strict {
			s.mu.Unlock()
			return nil, &NotFoundError{Kind: "secret", Name: secretID}
		}
		secret = s.ensureSecretLocked(project, secretID)
		s.mu.Unlock()
		s.logger.Debug("secret auto-created", logging.String("secret", secretID))
		return secret.addVersion(defaultPayload), nil
	}
	s.mu.Unlock()

	return secret.Version(versionID)
}

// GetSecret returns an existing secret by id. In strict mode a miss is a
// *NotFoundError; otherwise the secret is created empty under the given
// project.
func (s *Store) GetSecret(project, secretID string) (*Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if secret, ok := s.secrets[secretKey(project, secretID)]; ok {
		return secret, nil
	}
	if s.strict {
		return nil, &NotFoundError{Kind: "secret", Name: secretID}
	}
	return s.ensureSecretLocked(project, secretID), nil
}

// SecretIDs returns all secret ids across projects, sorted.
func (s *Store) SecretIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.secrets))
	for _, secret := range s.secrets {
		ids = append(ids, secret.id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) ensureSecretLocked(project, secretID string) *Secret {
	key := secretKey(project, secretID)
	if secret, ok := s.secrets[key]; ok {
		return secret
	}
	secret := &Secret{
		id:       secretID,
		project:  project,
		labels:   make(map[string]string),
		versions: make(map[string]*SecretVersion),
	}
	s.secrets[key] = secret
	return secret
}

// secretKey scopes the store map by project, so equally named secrets in
// different projects stay distinct.
func secretKey(project, secretID string) string {
	return project + "/" + secretID
}

// Secret is a named container of immutable, ordered versions.
type Secret struct {
	id      string
	project string

	mu       sync.RWMutex
	labels   map[string]string
	versions map[string]*SecretVersion
	lastID   int
}

// ID returns the secret id.
func (sec *Secret) ID() string { return sec.id }

// Name returns the full resource path of the secret.
func (sec *Secret) Name() string {
	return "projects/" + sec.project + "/secrets/" + sec.id
}

// Labels returns a copy of the secret labels.
func (sec *Secret) Labels() map[string]string {
	sec.mu.RLock()
	defer sec.mu.RUnlock()
	out := make(map[string]string, len(sec.labels))
	for k, v := range sec.labels {
		out[k] = v
	}
	return out
}

// VersionIDs returns the version ids in increasing numeric order.
func (sec *Secret) VersionIDs() []string {
	sec.mu.RLock()
	defer sec.mu.RUnlock()
	ids := make([]string, 0, len(sec.versions))
	for id := range sec.versions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}

// Version resolves a version id, or the latest version for LatestVersion.
// A secret without versions has no latest.
func (sec *Secret) Version(id string) (*SecretVersion, error) {
	sec.mu.RLock()
	defer sec.mu.RUnlock()
	if id == LatestVersion {
		if sec.lastID == 0 {
			return nil, &NotFoundError{Kind: "version", Name: sec.Name() + "/versions/latest"}
		}
		return sec.versions[strconv.Itoa(sec.lastID)], nil
	}
	version, ok := sec.versions[id]
	if !ok {
		return nil, &NotFoundError{Kind: "version", Name: sec.Name() + "/versions/" + id}
	}
	return version, nil
}

func (sec *Secret) addVersion(payload []byte) *SecretVersion {
	sec.mu.Lock()
	defer sec.mu.Unlock()
	sec.lastID++
	version := &SecretVersion{
		id:      strconv.Itoa(sec.lastID),
		secret:  sec,
		payload: append([]byte(nil), payload...),
		created: time.Now().UTC(),
	}
	sec.versions[version.id] = version
	return version
}

// SecretVersion is one immutable payload of a secret.
type SecretVersion struct {
	id      string
	secret  *Secret
	payload []byte
	created time.Time
}

// ID returns the numeric version id as a string ("1", "2", ...).
func (v *SecretVersion) ID() string { return v.id }

// Name returns the full resource path of the version.
func (v *SecretVersion) Name() string {
	return v.secret.Name() + "/versions/" + v.id
}

// Secret returns the owning secret.
func (v *SecretVersion) Secret() *Secret { return v.secret }

// Payload returns a copy of the version payload.
func (v *SecretVersion) Payload() []byte {
	return append([]byte(nil), v.payload...)
}

// Created returns the version creation time.
func (v *SecretVersion) Created() time.Time { return v.created }
