package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"modelkombat/config/models"
	"modelkombat/config/storage"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/crypto"
	"modelkombat/internal/notify"
	"modelkombat/internal/observability"
	"modelkombat/internal/rounds"
)

// fakeService accepts the credentials in valid and serves catalog
type fakeService struct {
	mu          sync.Mutex
	valid       map[string]bool
	catalog     []models.CatalogEntry
	fetchErr    error
	credential  string
	initialized []string
	resets      int
	fetches     int
}

func newFakeService(valid ...string) *fakeService {
	f := &fakeService{valid: map[string]bool{}}
	for _, v := range valid {
		f.valid[v] = true
	}
	return f
}

func (f *fakeService) Initialize(credential string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = credential
	f.initialized = append(f.initialized, credential)
}

func (f *fakeService) TestConnection(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid[f.credential]
}

func (f *fakeService) FetchModelCatalog(ctx context.Context, force bool) ([]models.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if !f.valid[f.credential] {
		return nil, fmt.Errorf("%w: rejected", apperrors.ErrCredentialInvalid)
	}
	return slices.Clone(f.catalog), nil
}

func (f *fakeService) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = ""
	f.resets++
}

// flakyBackend fails saves while failSave is set
type flakyBackend struct {
	Backend
	failSave bool
}

func (b *flakyBackend) Save(ctx context.Context, userID string, cfg *models.Config) error {
	if b.failSave {
		return errors.New("disk full")
	}
	return b.Backend.Save(ctx, userID, cfg)
}

type StateSuite struct {
	suite.Suite

	ctx      context.Context
	store    *storage.FileStore
	backend  *flakyBackend
	service  *fakeService
	recorder *notify.Recorder
	metrics  *observability.Metrics
	clock    time.Time
	state    *State
}

func (s *StateSuite) SetupTest() {
	s.ctx = context.Background()

	store, err := storage.NewFileStore(filepath.Join(s.T().TempDir(), "store.json"))
	s.Require().NoError(err)
	s.store = store

	s.backend = &flakyBackend{Backend: NewLocalBackend(store)}
	s.service = newFakeService("sk-or-valid-key-1234")
	s.service.catalog = []models.CatalogEntry{
		{ID: "openai/gpt-4o", DisplayName: "GPT-4o"},
		{ID: "anthropic/claude-3.5-sonnet"},
	}
	s.recorder = &notify.Recorder{}
	s.metrics = observability.NewMetrics()
	s.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.state = s.newState()
}

func (s *StateSuite) newState(opts ...Option) *State {
	opts = append([]Option{
		WithNotifier(s.recorder),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.clock }),
		WithTimeout(time.Second),
	}, opts...)
	return NewState(s.backend, LocalIdentity{}, s.service, opts...)
}

func (s *StateSuite) TestLoadCreatesDefaults() {
	s.Require().NoError(s.state.LoadConfig(s.ctx))

	cfg := s.state.Config()
	s.Equal(models.LocalUserID, cfg.UserID)
	s.Empty(cfg.EnabledModelIDs)
	s.Equal(models.DefaultRefinementRounds, cfg.DefaultRefinementRounds)
	s.Nil(cfg.LastCatalogSyncTime)

	stored, found, err := s.backend.Load(s.ctx, models.LocalUserID)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(models.DefaultRefinementRounds, stored.DefaultRefinementRounds)
}

func (s *StateSuite) TestSetDefaultRoundsValidation() {
	for _, n := range []int{0, 11, -1} {
		err := s.state.SetDefaultRounds(s.ctx, n)
		s.ErrorIs(err, apperrors.ErrValidationFailure, "rounds %d", n)
		s.Equal(models.DefaultRefinementRounds, s.state.Config().DefaultRefinementRounds)
	}

	s.Require().NoError(s.state.SetDefaultRounds(s.ctx, 5))
	s.Equal(5, s.state.Config().DefaultRefinementRounds)

	last, ok := s.recorder.Last()
	s.Require().True(ok)
	s.Equal(notify.LevelSuccess, last.Level)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Mutations.WithLabelValues("setDefaultRounds", "success")))
	s.Equal(3.0, testutil.ToFloat64(s.metrics.Mutations.WithLabelValues("setDefaultRounds", "ValidationFailure")))
}

func (s *StateSuite) TestToggleThenSelectRoundRobin() {
	s.Require().NoError(s.state.LoadConfig(s.ctx))
	s.Equal(rounds.AutoModel, s.state.SelectModel(0))

	for _, id := range []string{"m1", "m2", "m3"} {
		s.Require().NoError(s.state.ToggleModel(s.ctx, id))
	}
	s.Equal([]string{"m1", "m2", "m3"}, s.state.Config().EnabledModelIDs)

	var got []string
	for r := 0; r < 4; r++ {
		got = append(got, s.state.SelectModel(r))
	}
	s.Equal([]string{"m1", "m2", "m3", "m1"}, got)

	s.Require().NoError(s.state.ToggleModel(s.ctx, "m2"))
	s.Equal([]string{"m1", "m3"}, s.state.Config().EnabledModelIDs)

	s.ErrorIs(s.state.ToggleModel(s.ctx, ""), apperrors.ErrValidationFailure)
}

func (s *StateSuite) TestSaveCredentialVerifiesAndPersists() {
	s.Require().NoError(s.state.SaveCredential(s.ctx, "sk-or-valid-key-1234"))

	cfg := s.state.Config()
	s.Equal(crypto.Encode("sk-or-valid-key-1234"), cfg.Credential)
	s.NotEqual("sk-or-valid-key-1234", cfg.Credential)
	s.Equal("sk-or-valid-key-1234", s.state.Credential())
	s.Empty(s.state.LastError())

	reloaded := s.newState()
	s.Require().NoError(reloaded.LoadConfig(s.ctx))
	s.Equal("sk-or-valid-key-1234", reloaded.Credential())
}

func (s *StateSuite) TestSaveCredentialRejected() {
	err := s.state.SaveCredential(s.ctx, "sk-or-bogus")
	s.ErrorIs(err, apperrors.ErrCredentialInvalid)
	s.NotEmpty(s.state.LastError())
	s.Empty(s.state.Config().Credential)

	last, ok := s.recorder.Last()
	s.Require().True(ok)
	s.Equal(notify.LevelFailure, last.Level)

	s.ErrorIs(s.state.SaveCredential(s.ctx, "   "), apperrors.ErrValidationFailure)
}

func (s *StateSuite) TestVerify() {
	s.ErrorIs(s.state.Verify(s.ctx), apperrors.ErrCredentialInvalid)

	s.Require().NoError(s.state.SaveCredential(s.ctx, "sk-or-valid-key-1234"))
	s.NoError(s.state.Verify(s.ctx))

	delete(s.service.valid, "sk-or-valid-key-1234")
	s.ErrorIs(s.state.Verify(s.ctx), apperrors.ErrCredentialInvalid)
	s.NotEmpty(s.state.LastError())
}

func (s *StateSuite) TestSyncCatalog() {
	_, err := s.state.SyncCatalog(s.ctx, false)
	s.ErrorIs(err, apperrors.ErrCredentialInvalid)

	s.Require().NoError(s.state.SaveCredential(s.ctx, "sk-or-valid-key-1234"))
	entries, err := s.state.SyncCatalog(s.ctx, true)
	s.Require().NoError(err)
	s.Len(entries, 2)
	s.Equal("openai/gpt-4o", s.state.Catalog()[0].ID)

	synced := s.state.Config().LastCatalogSyncTime
	s.Require().NotNil(synced)
	s.True(synced.Equal(s.clock))
}

func (s *StateSuite) TestSyncFailureKeepsPriorState() {
	s.Require().NoError(s.state.SaveCredential(s.ctx, "sk-or-valid-key-1234"))
	_, err := s.state.SyncCatalog(s.ctx, false)
	s.Require().NoError(err)
	s.Require().NoError(s.state.ToggleModel(s.ctx, "openai/gpt-4o"))

	s.service.fetchErr = fmt.Errorf("%w: connection refused", apperrors.ErrNetworkFailure)
	s.service.catalog = nil

	_, err = s.state.SyncCatalog(s.ctx, true)
	s.ErrorIs(err, apperrors.ErrNetworkFailure)
	s.Len(s.state.Catalog(), 2)
	s.Equal([]string{"openai/gpt-4o"}, s.state.Config().EnabledModelIDs)
	s.NotEmpty(s.state.LastError())
}

func (s *StateSuite) TestPersistenceFailureLeavesMemoryUnchanged() {
	s.Require().NoError(s.state.LoadConfig(s.ctx))
	s.backend.failSave = true

	err := s.state.SetDefaultRounds(s.ctx, 7)
	s.ErrorIs(err, apperrors.ErrPersistenceFailure)
	s.Equal(models.DefaultRefinementRounds, s.state.Config().DefaultRefinementRounds)

	s.ErrorIs(s.state.ToggleModel(s.ctx, "m1"), apperrors.ErrPersistenceFailure)
	s.Empty(s.state.Config().EnabledModelIDs)
}

func (s *StateSuite) TestCorruptStoredCredential() {
	cfg := models.NewConfig(models.LocalUserID)
	cfg.Credential = "!!not-encoded!!"
	s.Require().NoError(s.backend.Save(s.ctx, models.LocalUserID, cfg))

	s.Require().NoError(s.state.LoadConfig(s.ctx))
	s.Empty(s.state.Credential())
	s.NotEmpty(s.state.LastError())

	_, err := s.state.SyncCatalog(s.ctx, false)
	s.ErrorIs(err, apperrors.ErrCredentialInvalid)
}

func (s *StateSuite) TestClearConfig() {
	s.Require().NoError(s.state.SaveCredential(s.ctx, "sk-or-valid-key-1234"))
	_, err := s.state.SyncCatalog(s.ctx, false)
	s.Require().NoError(err)
	s.Require().NoError(s.state.SetDefaultJudge(s.ctx, "anthropic/claude-3.5-sonnet"))

	s.Require().NoError(s.state.ClearConfig(s.ctx))
	cfg := s.state.Config()
	s.Empty(cfg.Credential)
	s.Empty(cfg.DefaultJudgeID)
	s.Equal(models.DefaultRefinementRounds, cfg.DefaultRefinementRounds)
	s.Empty(s.state.Catalog())
	s.Equal(1, s.service.resets)

	reloaded := s.newState()
	s.Require().NoError(reloaded.LoadConfig(s.ctx))
	s.Empty(reloaded.Credential())
}

func (s *StateSuite) TestSyncOnLoad() {
	s.Require().NoError(s.state.SaveCredential(s.ctx, "sk-or-valid-key-1234"))

	state := s.newState(WithSyncOnLoad(true))
	s.Require().NoError(state.LoadConfig(s.ctx))
	s.Len(state.Catalog(), 2)

	s.service.fetchErr = errors.New("boom")
	state = s.newState(WithSyncOnLoad(true))
	s.NoError(state.LoadConfig(s.ctx))
	s.Empty(state.Catalog())
	s.NotEmpty(state.LastError())
}

func (s *StateSuite) TestDefaultModels() {
	s.Require().NoError(s.state.SetDefaultRefiner(s.ctx, "openai/gpt-4o"))
	s.Require().NoError(s.state.SetDefaultJudge(s.ctx, "not-in-catalog/model"))
	s.Equal("openai/gpt-4o", s.state.Config().DefaultRefinerID)
	s.Equal("not-in-catalog/model", s.state.Config().DefaultJudgeID)

	s.Require().NoError(s.state.SetDefaultRefiner(s.ctx, ""))
	s.Empty(s.state.Config().DefaultRefinerID)

	s.ErrorIs(s.state.SetDefaultJudge(s.ctx, "bad id"), apperrors.ErrValidationFailure)
	s.Equal("not-in-catalog/model", s.state.Config().DefaultJudgeID)
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateSuite))
}
