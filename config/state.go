package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"modelkombat/config/models"
	"modelkombat/config/validation"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/crypto"
	"modelkombat/internal/notify"
	"modelkombat/internal/observability"
	"modelkombat/internal/rounds"
	"modelkombat/internal/utils"
)

// DefaultTimeout bounds every backend and remote call made by a State
const DefaultTimeout = 15 * time.Second

// State is the configuration state of one user session. Mutations are
// serialized and written through to the backend before the in-memory copy
// changes.
type State struct {
	mu sync.Mutex

	backend   Backend
	identity  Identity
	service   Service
	validator *validation.Validator

	logger     *zap.Logger
	notifier   notify.Sink
	metrics    *observability.Metrics
	timeout    time.Duration
	now        func() time.Time
	syncOnLoad bool

	userID    string
	loaded    bool
	config    *models.Config
	catalog   []models.CatalogEntry
	lastError string

	// credential the service was last initialized with
	serviceCredential string
}

// Option configures a State
type Option func(*State)

// WithLogger sets the logger, zap.NewNop by default
func WithLogger(logger *zap.Logger) Option {
	return func(s *State) { s.logger = logger }
}

// WithNotifier sets the notification sink
func WithNotifier(sink notify.Sink) Option {
	return func(s *State) { s.notifier = sink }
}

// WithMetrics records activity on m
func WithMetrics(m *observability.Metrics) Option {
	return func(s *State) { s.metrics = m }
}

// WithTimeout bounds backend and remote calls
func WithTimeout(d time.Duration) Option {
	return func(s *State) { s.timeout = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithSyncOnLoad syncs the catalog after a load that found a credential
func WithSyncOnLoad(enabled bool) Option {
	return func(s *State) { s.syncOnLoad = enabled }
}

// NewState creates a State. Nothing is loaded until LoadConfig or the first
// operation.
func NewState(backend Backend, identity Identity, service Service, opts ...Option) *State {
	s := &State{
		backend:   backend,
		identity:  identity,
		service:   service,
		validator: validation.NewValidator(),
		logger:    zap.NewNop(),
		notifier:  notify.Discard,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadConfig loads the current user's config, creating a default one if the
// user has none.
func (s *State) LoadConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.identity.CurrentUser()
	if !ok {
		s.forget()
		return apperrors.ErrNotAuthenticated
	}
	err := s.load(ctx, userID)
	if err != nil {
		s.notifier.Notify(notify.Failure("Failed to load configuration", err.Error()))
	}
	return err
}

// SaveCredential verifies credential against the remote service and stores it
// on success.
func (s *State) SaveCredential(ctx context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.saveCredential(ctx, credential)
	s.finish("saveCredential", err, "API key saved", "The API key was verified and stored", "Failed to save API key")
	return err
}

func (s *State) saveCredential(ctx context.Context, credential string) error {
	if _, err := s.ensureUser(ctx); err != nil {
		return err
	}
	if err := s.validator.ValidateCredential(credential); err != nil {
		return err
	}

	if !s.verify(ctx, credential) {
		err := fmt.Errorf("%w: the service rejected the API key", apperrors.ErrCredentialInvalid)
		s.lastError = err.Error()
		return err
	}

	next := s.config.Clone()
	next.Credential = crypto.Encode(credential)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.config = next
	s.lastError = ""
	s.logger.Info("credential saved", zap.String("user", s.userID), zap.String("credential", utils.MaskCredential(credential)))
	return nil
}

// Verify tests the stored credential against the remote service
func (s *State) Verify(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.verifyStored(ctx)
	s.finish("verify", err, "Connection verified", "The API key is valid", "Connection failed")
	return err
}

func (s *State) verifyStored(ctx context.Context) error {
	if _, err := s.ensureUser(ctx); err != nil {
		return err
	}
	credential := crypto.Decode(s.config.Credential)
	if credential == "" {
		err := fmt.Errorf("%w: no API key configured", apperrors.ErrCredentialInvalid)
		s.lastError = err.Error()
		return err
	}
	if !s.verify(ctx, credential) {
		err := fmt.Errorf("%w: the service rejected the API key", apperrors.ErrCredentialInvalid)
		s.lastError = err.Error()
		return err
	}
	s.lastError = ""
	return nil
}

// verify initializes the service with credential and tests it. A successful
// check leaves the service ready for catalog sync.
func (s *State) verify(ctx context.Context, credential string) bool {
	s.initService(credential)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok := s.service.TestConnection(ctx)
	s.metrics.RecordVerification(ok)
	s.logger.Debug("connection test", zap.Bool("ok", ok), zap.String("credential", utils.MaskCredential(credential)))
	return ok
}

// SyncCatalog replaces the catalog with the remote service's. On failure the
// previous catalog and enabled models are kept.
func (s *State) SyncCatalog(ctx context.Context, force bool) ([]models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.syncCatalog(ctx, force)
	s.finish("syncCatalog", err, "Catalog synced", fmt.Sprintf("%d models available", len(s.catalog)), "Catalog sync failed")
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.catalog), nil
}

func (s *State) syncCatalog(ctx context.Context, force bool) error {
	if _, err := s.ensureUser(ctx); err != nil {
		return err
	}

	credential := crypto.Decode(s.config.Credential)
	if credential == "" {
		err := fmt.Errorf("%w: no API key configured", apperrors.ErrCredentialInvalid)
		s.lastError = err.Error()
		s.metrics.RecordCatalogSync(false, 0)
		return err
	}
	s.initService(credential)

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.service.FetchModelCatalog(fetchCtx, force)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrNetworkFailure) {
			err = fmt.Errorf("%w: catalog fetch timed out: %v", apperrors.ErrNetworkFailure, err)
		}
		s.lastError = err.Error()
		s.metrics.RecordCatalogSync(false, 0)
		s.logger.Warn("catalog sync failed", zap.Error(err), zap.Int("kept", len(s.catalog)))
		return err
	}

	next := s.config.Clone()
	synced := s.now().UTC()
	next.LastCatalogSyncTime = &synced
	if err := s.save(ctx, next); err != nil {
		s.metrics.RecordCatalogSync(false, 0)
		return err
	}

	s.config = next
	s.catalog = slices.Clone(entries)
	s.lastError = ""
	s.metrics.RecordCatalogSync(true, len(entries))
	s.logger.Info("catalog synced", zap.Int("models", len(entries)), zap.Bool("force", force))
	return nil
}

// ToggleModel enables modelID if it is disabled and disables it otherwise.
// Ids missing from the catalog are accepted.
func (s *State) ToggleModel(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, err := s.toggleModel(ctx, modelID)
	title := "Model disabled"
	if enabled {
		title = "Model enabled"
	}
	s.finish("toggleModel", err, title, modelID, "Failed to toggle model")
	return err
}

func (s *State) toggleModel(ctx context.Context, modelID string) (bool, error) {
	if err := s.validator.ValidateModelID(modelID); err != nil {
		return false, err
	}

	var enabled bool
	err := s.commit(ctx, func(next *models.Config) {
		if i := slices.Index(next.EnabledModelIDs, modelID); i >= 0 {
			next.EnabledModelIDs = slices.Delete(next.EnabledModelIDs, i, i+1)
			return
		}
		next.EnabledModelIDs = append(next.EnabledModelIDs, modelID)
		enabled = true
	})
	return enabled, err
}

// SetDefaultRefiner sets the default refiner model, empty clears it
func (s *State) SetDefaultRefiner(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.setDefaultModel(ctx, modelID, func(c *models.Config) { c.DefaultRefinerID = modelID })
	s.finish("setDefaultRefiner", err, "Default refiner updated", describeModel(modelID), "Failed to set default refiner")
	return err
}

// SetDefaultJudge sets the default judge model, empty clears it
func (s *State) SetDefaultJudge(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.setDefaultModel(ctx, modelID, func(c *models.Config) { c.DefaultJudgeID = modelID })
	s.finish("setDefaultJudge", err, "Default judge updated", describeModel(modelID), "Failed to set default judge")
	return err
}

func (s *State) setDefaultModel(ctx context.Context, modelID string, set func(*models.Config)) error {
	if modelID != "" {
		if err := s.validator.ValidateModelID(modelID); err != nil {
			return err
		}
	}
	return s.commit(ctx, set)
}

// SetDefaultRounds sets the default refinement round count. Values outside
// [1,10] fail with a validation error and change nothing.
func (s *State) SetDefaultRounds(ctx context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.validator.ValidateRounds(n)
	if err == nil {
		err = s.commit(ctx, func(c *models.Config) { c.DefaultRefinementRounds = n })
	}
	s.finish("setDefaultRounds", err, "Default rounds updated", fmt.Sprintf("%d rounds", n), "Failed to set default rounds")
	return err
}

// ClearConfig resets the stored config to defaults, resets the remote client
// and drops the catalog.
func (s *State) ClearConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.clear(ctx)
	s.finish("clearConfig", err, "Configuration cleared", "All settings were reset to defaults", "Failed to clear configuration")
	return err
}

func (s *State) clear(ctx context.Context) error {
	userID, ok := s.identity.CurrentUser()
	if !ok {
		return apperrors.ErrNotAuthenticated
	}

	bctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.backend.Clear(bctx, userID); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}

	s.service.Reset()
	s.serviceCredential = ""
	s.userID = userID
	s.loaded = true
	s.config = models.NewConfig(userID)
	s.catalog = nil
	s.lastError = ""
	return nil
}

// Config returns a copy of the current config. Before the first load it is
// the default config.
func (s *State) Config() *models.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return models.NewConfig(s.userID)
	}
	return s.config.Clone()
}

// Catalog returns a copy of the last synced catalog
func (s *State) Catalog() []models.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.catalog)
}

// LastError returns the message of the last remote or credential failure
func (s *State) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// UserID returns the user the state is loaded for
func (s *State) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Credential returns the decoded credential, empty if none is usable
func (s *State) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return ""
	}
	return crypto.Decode(s.config.Credential)
}

// SelectModel returns the model for a zero-based round over the enabled models
func (s *State) SelectModel(round int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var enabled []string
	if s.config != nil {
		enabled = s.config.EnabledModelIDs
	}
	model := rounds.SelectModel(enabled, round)
	s.metrics.RecordModelSelection("round", model)
	return model
}

// ensureUser resolves the current user and loads their config if it is not
// the one in memory.
func (s *State) ensureUser(ctx context.Context) (string, error) {
	userID, ok := s.identity.CurrentUser()
	if !ok {
		s.forget()
		return "", apperrors.ErrNotAuthenticated
	}
	if !s.loaded || userID != s.userID {
		if err := s.load(ctx, userID); err != nil {
			return "", err
		}
	}
	return userID, nil
}

func (s *State) load(ctx context.Context, userID string) error {
	bctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cfg, found, err := s.backend.Load(bctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}
	if !found {
		cfg = models.NewConfig(userID)
		if err := s.backend.Save(bctx, userID, cfg); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
		}
		s.logger.Info("created default configuration", zap.String("user", userID))
	}
	s.normalize(userID, cfg)

	if userID != s.userID {
		s.catalog = nil
	}
	s.userID = userID
	s.config = cfg
	s.loaded = true
	s.lastError = ""

	credential := crypto.Decode(cfg.Credential)
	switch {
	case cfg.Credential != "" && credential == "":
		s.lastError = fmt.Sprintf("%v: stored API key could not be decoded, enter it again", apperrors.ErrCredentialInvalid)
		cfg.Credential = ""
		s.logger.Warn("stored credential is unreadable", zap.String("user", userID))
	case credential != "":
		s.initService(credential)
	}

	if s.syncOnLoad && credential != "" {
		if err := s.syncCatalog(ctx, false); err != nil {
			s.logger.Warn("catalog sync on load failed", zap.Error(err))
		}
	}
	return nil
}

// normalize repairs fields a stored record may lack or have out of range
func (s *State) normalize(userID string, cfg *models.Config) {
	cfg.UserID = userID
	cfg.EnabledModelIDs = s.validator.NormalizeModels(cfg.EnabledModelIDs)
	if s.validator.ValidateRounds(cfg.DefaultRefinementRounds) != nil {
		cfg.DefaultRefinementRounds = models.DefaultRefinementRounds
	}
}

// commit applies change to a copy of the config, writes it through and only
// then swaps it in.
func (s *State) commit(ctx context.Context, change func(*models.Config)) error {
	if _, err := s.ensureUser(ctx); err != nil {
		return err
	}
	next := s.config.Clone()
	change(next)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.config = next
	return nil
}

func (s *State) save(ctx context.Context, cfg *models.Config) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.backend.Save(ctx, s.userID, cfg); err != nil {
		s.logger.Error("failed to persist configuration", zap.String("user", s.userID), zap.Error(err))
		return fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}
	return nil
}

func (s *State) initService(credential string) {
	if credential == s.serviceCredential {
		return
	}
	s.service.Initialize(credential)
	s.serviceCredential = credential
}

// forget drops in-memory state after the user signed out
func (s *State) forget() {
	if !s.loaded {
		return
	}
	s.userID = ""
	s.loaded = false
	s.config = nil
	s.catalog = nil
	s.lastError = ""
}

// finish records the outcome of an operation and notifies the sink
func (s *State) finish(op string, err error, successTitle, successDescription, failureTitle string) {
	s.metrics.RecordMutation(op, string(apperrors.KindOf(err)))
	if err != nil {
		s.logger.Debug("operation failed", zap.String("op", op), zap.Error(err))
		s.notifier.Notify(notify.Failure(failureTitle, err.Error()))
		return
	}
	s.notifier.Notify(notify.Success(successTitle, successDescription))
}

func describeModel(modelID string) string {
	if modelID == "" {
		return "cleared"
	}
	return modelID
}
