package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/prompt"
	"github.com/meetinsight/service/internal/session"
)

// Service orchestrates extraction across backends. It owns the active
// model selection and fans the requested extraction kinds out in parallel.
type Service struct {
	factory  *llm.Factory
	builder  *prompt.Builder
	sessions *session.Store
	log      *logrus.Logger

	mutex      sync.RWMutex
	active     models.ModelType
	extractors map[models.ModelType]*Extractor
}

// NewService wires the orchestrator. The session store is optional; without
// one, per-session history is simply not recorded.
func NewService(factory *llm.Factory, builder *prompt.Builder, sessions *session.Store, log *logrus.Logger) *Service {
	return &Service{
		factory:    factory,
		builder:    builder,
		sessions:   sessions,
		log:        log,
		active:     models.ModelApertus,
		extractors: make(map[models.ModelType]*Extractor),
	}
}

// ActiveModel returns the backend used when a request names none.
func (s *Service) ActiveModel() models.ModelType {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.active
}

// SwitchModel changes the default backend. The target must construct
// successfully, so switching to an unconfigured backend fails here rather
// than on the next extraction.
func (s *Service) SwitchModel(target models.ModelType) error {
	if _, err := s.getExtractor(target); err != nil {
		return err
	}

	s.mutex.Lock()
	s.active = target
	s.mutex.Unlock()

	s.log.WithField("model", target).Info("active model switched")
	return nil
}

// ListModels reports every registered backend and whether it is the active
// default.
func (s *Service) ListModels() []ModelInfo {
	active := s.ActiveModel()
	providers := s.factory.ListProviders()

	infos := make([]ModelInfo, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, ModelInfo{
			Type:   p,
			Active: p == active,
		})
	}
	return infos
}

// ModelInfo describes one registered backend.
type ModelInfo struct {
	Type   models.ModelType `json:"model_type"`
	Active bool             `json:"active"`
}

// RegisterClient installs a pre-built client for its model type, bypassing
// the factory. Used for backends constructed elsewhere.
func (s *Service) RegisterClient(client llm.Client) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.extractors[client.Provider()] = NewExtractor(client, s.builder, s.log)
}

func (s *Service) getExtractor(provider models.ModelType) (*Extractor, error) {
	s.mutex.RLock()
	if ex, ok := s.extractors[provider]; ok {
		s.mutex.RUnlock()
		return ex, nil
	}
	s.mutex.RUnlock()

	client, err := s.factory.CreateClient(provider)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if ex, ok := s.extractors[provider]; ok {
		return ex, nil
	}
	ex := NewExtractor(client, s.builder, s.log)
	s.extractors[provider] = ex
	return ex, nil
}

// Extract runs the requested extraction kinds against one backend and
// assembles the combined result. Individual kind failures degrade the
// result instead of failing it; only an unusable backend is an error.
func (s *Service) Extract(ctx context.Context, req *models.ExtractionRequest) (*models.ExtractionResult, error) {
	start := time.Now()

	provider := req.ModelType
	if provider == "" {
		provider = s.ActiveModel()
	}

	ex, err := s.getExtractor(provider)
	if err != nil {
		return nil, err
	}

	wantTasks, wantRequests, wantSentiment := req.ExtractTasks, req.ExtractRequests, req.ExtractSentiment
	if !wantTasks && !wantRequests && !wantSentiment {
		wantTasks, wantRequests, wantSentiment = true, true, true
	}

	var (
		tasks     []models.ExtractedTask
		requests  []models.ExtractedClientRequest
		sentiment *float64

		failMutex sync.Mutex
		failures  []string
	)
	recordFailure := func(kind string, err error) {
		failMutex.Lock()
		failures = append(failures, fmt.Sprintf("%s: %v", kind, err))
		failMutex.Unlock()
		s.log.WithFields(logrus.Fields{
			"provider": provider,
			"kind":     kind,
		}).WithError(err).Warn("extraction kind failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	if wantTasks {
		g.Go(func() error {
			out, err := ex.ExtractTasks(gctx, req.Text, req.Language)
			tasks = out
			if err != nil {
				recordFailure("tasks", err)
			}
			return nil
		})
	}
	if wantRequests {
		g.Go(func() error {
			out, err := ex.ExtractClientRequests(gctx, req.Text, req.Language)
			requests = out
			if err != nil {
				recordFailure("requests", err)
			}
			return nil
		})
	}
	if wantSentiment {
		g.Go(func() error {
			score, err := ex.ExtractSentiment(gctx, req.Text)
			if err != nil {
				recordFailure("sentiment", err)
				return nil
			}
			sentiment = &score
			return nil
		})
	}
	_ = g.Wait()

	status := models.StatusOK
	if len(failures) > 0 {
		status = models.StatusDegraded
	}

	result := &models.ExtractionResult{
		ModelUsed:      provider,
		Tasks:          tasks,
		Requests:       requests,
		SentimentScore: sentiment,
		Confidence:     meanConfidence(tasks, requests),
		ProcessingTime: time.Since(start),
		Status:         status,
		Failures:       failures,
		Metadata: map[string]any{
			"language": req.Language,
		},
	}

	if s.sessions != nil && req.SessionID != "" {
		s.sessions.Append(req.SessionID, session.Turn{
			Text:      req.Text,
			ModelUsed: provider,
			Tasks:     len(tasks),
			Requests:  len(requests),
			Status:    string(status),
			At:        time.Now(),
		})
	}

	return result, nil
}

// PredictLabels maps a transcript onto the task-type vocabulary using the
// named backend, or the active one when provider is empty.
func (s *Service) PredictLabels(ctx context.Context, provider models.ModelType, text string) ([]string, error) {
	if provider == "" {
		provider = s.ActiveModel()
	}
	ex, err := s.getExtractor(provider)
	if err != nil {
		return nil, err
	}
	return ex.PredictLabels(ctx, text)
}

// meanConfidence averages the confidence of every extracted entity. No
// entities means no confidence to report, not full confidence.
func meanConfidence(tasks []models.ExtractedTask, requests []models.ExtractedClientRequest) float64 {
	sum, n := 0.0, 0
	for _, t := range tasks {
		sum += t.Confidence
		n++
	}
	for _, r := range requests {
		sum += r.Confidence
		n++
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}
