package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ballha123/wifak-banque/internal/batch"
	"github.com/ballha123/wifak-banque/internal/delegation"
	"github.com/ballha123/wifak-banque/internal/metrics"
	"github.com/ballha123/wifak-banque/internal/store"
	"github.com/ballha123/wifak-banque/internal/util"
)

const (
	sourceAPI    = "api"
	sourceBatch  = "batch"
	sourceStream = "stream"

	maxBatchRows = 5000
)

var errJournalDisabled = errors.New("evaluation journal is disabled")

// Config defines server dependencies.
type Config struct {
	JournalPath    string
	DisableJournal bool
	SilentDB       bool
	Policy         delegation.Policy
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

// Server wires HTTP handlers with the delegation engine and the journal.
type Server struct {
	db             *store.Database
	engine         *delegation.Engine
	metrics        *metrics.Metrics
	allowedOrigins []string
	now            func() time.Time
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	engine, err := delegation.NewEngine(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("delegation engine: %w", err)
	}

	var db *store.Database
	if cfg.DisableJournal {
		logrus.Info("evaluation journal disabled via configuration")
	} else {
		if strings.TrimSpace(cfg.JournalPath) == "" {
			return nil, errors.New("journal path required")
		}
		db, err = store.Open(cfg.JournalPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		logrus.WithField("path", cfg.JournalPath).Info("evaluation journal ready")
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	logrus.WithFields(logrus.Fields{
		"policy":            cfg.Policy.Reference,
		"version":           cfg.Policy.Version,
		"risk_pole_bct_to":  cfg.Policy.RiskPoleBCTEscalation.String(),
		"journal_available": db != nil,
	}).Info("delegation engine ready")

	return &Server{
		db:             db,
		engine:         engine,
		metrics:        m,
		allowedOrigins: cfg.AllowedOrigins,
		now:            time.Now,
	}, nil
}

// Close releases the journal.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/levels", s.handleLevels)
		api.GET("/defaults", s.handleDefaults)
		api.GET("/policy", s.handlePolicy)
		api.POST("/evaluate", s.handleEvaluate)
		api.POST("/evaluate/batch", s.handleEvaluateBatch)
		api.GET("/evaluate/stream", s.handleEvaluateStream)
		api.GET("/evaluations", s.handleListEvaluations)
		api.GET("/evaluations/summary", s.handleSummary)
		api.GET("/evaluations/:id", s.handleGetEvaluation)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleLevels(c *gin.Context) {
	c.JSON(http.StatusOK, LevelsResponse{
		Items:      delegation.Levels(),
		AssetTypes: delegation.AssetTypes(),
	})
}

func (s *Server) handleDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, delegation.DefaultDossier())
}

func (s *Server) handlePolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Policy())
}

func (s *Server) handleEvaluate(c *gin.Context) {
	req := newEvaluateRequest()
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid dossier: %w", err))
			return
		}
	}

	dto := s.evaluate(req.Dossier, req.Reference, sourceAPI)
	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleEvaluateBatch(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.renderError(c, http.StatusBadRequest, errors.New("dossiers csv file is required"))
		} else {
			s.renderError(c, http.StatusBadRequest, err)
		}
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	defer src.Close()

	rows, err := batch.ReadDossiers(src)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if len(rows) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("no dossiers detected in csv"))
		return
	}
	if len(rows) > maxBatchRows {
		s.renderError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("csv holds %d dossiers, limit is %d", len(rows), maxBatchRows))
		return
	}

	resp := BatchResponse{
		Filename: fileHeader.Filename,
		Total:    len(rows),
		Items:    make([]BatchItemDTO, 0, len(rows)),
	}
	for _, row := range rows {
		item := BatchItemDTO{Line: row.Line, Reference: row.Reference}
		if row.Err != nil {
			item.Error = row.Err.Error()
			resp.Failed++
		} else {
			dto := s.evaluate(row.Dossier, row.Reference, sourceBatch)
			item.Evaluation = &dto
		}
		resp.Items = append(resp.Items, item)
	}

	logrus.WithFields(logrus.Fields{
		"filename": fileHeader.Filename,
		"total":    resp.Total,
		"failed":   resp.Failed,
	}).Info("batch evaluated")
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusNotFound, errJournalDisabled)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}

	level := strings.TrimSpace(c.Query("level"))
	if level != "" {
		if _, err := delegation.ParseLevel(level); err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
	}

	rows, total, err := s.db.ListEvaluations(store.EvaluationQuery{
		Level:  level,
		Source: c.Query("source"),
		Sort:   c.Query("sort"),
		Offset: page * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]JournalEntryDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	c.JSON(http.StatusOK, JournalResponse{Items: items, Total: total})
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusNotFound, errJournalDisabled)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid evaluation id: %s", id))
		return
	}
	row, err := s.db.GetEvaluation(id)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, FromModel(*row))
}

func (s *Server) handleSummary(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusNotFound, errJournalDisabled)
		return
	}
	counts, err := s.db.CountByLevel()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	var total int64
	for _, row := range counts {
		total += row.Total
	}
	if counts == nil {
		counts = []store.LevelCount{}
	}
	c.JSON(http.StatusOK, SummaryResponse{Items: counts, Total: total})
}

// evaluate runs the engine, records metrics and journals the outcome. Journal
// failures are logged and never surface to the caller.
func (s *Server) evaluate(d delegation.Dossier, reference, source string) EvaluationDTO {
	timer := util.StartTimer()
	result := s.engine.Evaluate(d)
	elapsed := timer.Elapsed()

	info := result.Info()
	dto := EvaluationDTO{
		ID:               uuid.NewString(),
		Reference:        reference,
		Level:            result.Level,
		Label:            info.Label,
		Ceiling:          info.Ceiling,
		Circuit:          info.Circuit,
		Standard:         result.Standard(),
		Reasons:          result.Reasons,
		Path:             result.Path,
		Steps:            result.Steps,
		Dossier:          d,
		PolicyReference:  s.engine.Policy().Reference,
		ProcessingTimeUs: elapsed.Microseconds(),
		EvaluatedAt:      s.now().UTC(),
	}

	row := store.NewEvaluation(dto.ID, source, d, result, dto.PolicyReference, dto.ProcessingTimeUs)
	s.metrics.ObserveEvaluation(row.Level, source, row.Rules(), elapsed)

	if s.db != nil && source != sourceStream {
		if err := s.db.SaveEvaluation(row); err != nil {
			s.metrics.IncrementJournalErrors()
			logrus.WithError(err).WithFields(logrus.Fields{
				"evaluation_id": dto.ID,
				"source":        source,
			}).Warn("journal evaluation")
		}
	}

	logrus.WithFields(logrus.Fields{
		"evaluation_id": dto.ID,
		"level":         result.Level.String(),
		"reasons":       len(result.Reasons),
		"source":        source,
	}).Debug("dossier evaluated")
	return dto
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
