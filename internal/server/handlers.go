package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"modelkombat/config"
	"modelkombat/config/models"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/catalog"
	"modelkombat/internal/utils"
)

// configView is the public form of a Config; the credential is masked
type configView struct {
	UserID                  string     `json:"userId"`
	HasCredential           bool       `json:"hasCredential"`
	Credential              string     `json:"credential,omitempty"`
	EnabledModelIDs         []string   `json:"enabledModelIds"`
	DefaultRefinerID        string     `json:"defaultRefinerId,omitempty"`
	DefaultJudgeID          string     `json:"defaultJudgeId,omitempty"`
	DefaultRefinementRounds int        `json:"defaultRefinementRounds"`
	LastCatalogSyncTime     *time.Time `json:"lastCatalogSyncTime,omitempty"`
	LastError               string     `json:"lastError,omitempty"`
}

func viewOf(st *config.State) configView {
	cfg := st.Config()
	credential := st.Credential()
	v := configView{
		UserID:                  cfg.UserID,
		HasCredential:           credential != "",
		EnabledModelIDs:         cfg.EnabledModelIDs,
		DefaultRefinerID:        cfg.DefaultRefinerID,
		DefaultJudgeID:          cfg.DefaultJudgeID,
		DefaultRefinementRounds: cfg.DefaultRefinementRounds,
		LastCatalogSyncTime:     cfg.LastCatalogSyncTime,
		LastError:               st.LastError(),
	}
	if credential != "" {
		v.Credential = utils.MaskCredential(credential)
	}
	return v
}

func (s *Server) state(c *gin.Context) *config.State {
	return s.pool.Get(userID(c))
}

// loaded returns the caller's State, loading it on first use
func (s *Server) loaded(c *gin.Context) (*config.State, bool) {
	st := s.state(c)
	if st.UserID() == "" {
		if err := st.LoadConfig(c.Request.Context()); err != nil {
			s.writeError(c, err)
			return nil, false
		}
	}
	return st, true
}

func (s *Server) getConfig(c *gin.Context) {
	st, ok := s.loaded(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(st))
}

func (s *Server) clearConfig(c *gin.Context) {
	st := s.state(c)
	if err := st.ClearConfig(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(st))
}

func (s *Server) saveCredential(c *gin.Context) {
	var body struct {
		Credential string `json:"credential"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	st := s.state(c)
	if err := st.SaveCredential(c.Request.Context(), body.Credential); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(st))
}

func (s *Server) verify(c *gin.Context) {
	st := s.state(c)
	if err := st.Verify(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (s *Server) syncCatalog(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	st := s.state(c)
	entries, err := st.SyncCatalog(c.Request.Context(), force)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": catalog.Annotate(entries, st.Config().EnabledModelIDs)})
}

func (s *Server) getCatalog(c *gin.Context) {
	st, ok := s.loaded(c)
	if !ok {
		return
	}

	entries := catalog.Annotate(st.Catalog(), st.Config().EnabledModelIDs)
	if flagship, _ := strconv.ParseBool(c.Query("flagship")); flagship {
		entries = catalog.Filter(entries, func(a catalog.Annotated) bool { return a.Flagship })
	}
	if provider := c.Query("provider"); provider != "" {
		entries = catalog.Filter(entries, func(a catalog.Annotated) bool { return a.Provider == provider })
	}
	c.JSON(http.StatusOK, gin.H{"models": entries})
}

type modelBody struct {
	ModelID string `json:"modelId"`
}

func (s *Server) toggleModel(c *gin.Context) {
	var body modelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	st := s.state(c)
	if err := st.ToggleModel(c.Request.Context(), body.ModelID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(st))
}

func (s *Server) setDefaultRefiner(c *gin.Context) {
	s.setDefaultModel(c, (*config.State).SetDefaultRefiner)
}

func (s *Server) setDefaultJudge(c *gin.Context) {
	s.setDefaultModel(c, (*config.State).SetDefaultJudge)
}

func (s *Server) setDefaultModel(c *gin.Context, set func(*config.State, context.Context, string) error) {
	var body modelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	st := s.state(c)
	if err := set(st, c.Request.Context(), body.ModelID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(st))
}

func (s *Server) setDefaultRounds(c *gin.Context) {
	var body struct {
		Rounds *int `json:"rounds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Rounds == nil {
		s.writeError(c, apperrors.Validation("request body must contain rounds"))
		return
	}

	st := s.state(c)
	if err := st.SetDefaultRounds(c.Request.Context(), *body.Rounds); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(st))
}

type roundView struct {
	Round int    `json:"round"`
	Model string `json:"model"`
}

// getRounds returns the model of each round; n defaults to the configured
// round count.
func (s *Server) getRounds(c *gin.Context) {
	st, ok := s.loaded(c)
	if !ok {
		return
	}

	n := st.Config().DefaultRefinementRounds
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < models.MinRefinementRounds || parsed > models.MaxRefinementRounds {
			s.writeError(c, apperrors.Validation("n must be an integer between %d and %d", models.MinRefinementRounds, models.MaxRefinementRounds))
			return
		}
		n = parsed
	}

	plan := make([]roundView, n)
	for i := range plan {
		plan[i] = roundView{Round: i, Model: st.SelectModel(i)}
	}
	c.JSON(http.StatusOK, gin.H{"rounds": plan})
}

func (s *Server) listResponses(c *gin.Context) {
	responses, err := s.ratings.List(c.Request.Context(), c.Query("project"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

func (s *Server) rateResponse(c *gin.Context) {
	var body struct {
		Rating *int `json:"rating"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}
	if err := s.ratings.Rate(c.Request.Context(), c.Param("id"), body.Rating); err != nil {
		s.writeError(c, err)
		return
	}
	s.writeResponse(c)
}

func (s *Server) setWinner(c *gin.Context) {
	var body struct {
		Winner bool `json:"winner"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}
	if err := s.ratings.SetWinner(c.Request.Context(), c.Param("id"), body.Winner); err != nil {
		s.writeError(c, err)
		return
	}
	s.writeResponse(c)
}

func (s *Server) writeResponse(c *gin.Context) {
	resp, err := s.ratings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ratingStats(c *gin.Context) {
	report, err := s.ratings.Stats(c.Request.Context(), c.Query("project"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
