package llm

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/models"
)

// creatorFunc builds a client from its config. Returning a configuration
// error marks the backend unavailable without stopping anything else.
type creatorFunc func(config *Config) (Client, error)

// Factory creates and caches one client per model type. Construction is
// lazy: a backend with no credentials only fails when first requested.
type Factory struct {
	creators map[models.ModelType]creatorFunc
	configs  map[models.ModelType]*Config
	clients  map[models.ModelType]Client
	mutex    sync.RWMutex
	log      *logrus.Logger
}

// NewFactory returns a factory with the four built-in backends registered.
func NewFactory(log *logrus.Logger) *Factory {
	f := &Factory{
		creators: make(map[models.ModelType]creatorFunc),
		configs:  make(map[models.ModelType]*Config),
		clients:  make(map[models.ModelType]Client),
		log:      log,
	}

	f.register(models.ModelApertus, NewApertusClient)
	f.register(models.ModelAzureOpenAI, NewAzureOpenAIClient)
	f.register(models.ModelHuggingFace, NewHuggingFaceClient)
	f.register(models.ModelLocal, NewLocalClient)

	return f
}

func (f *Factory) register(provider models.ModelType, creator creatorFunc) {
	f.creators[provider] = creator
}

// SetConfig installs the connection settings for a backend. Any cached
// client for that backend is discarded so the next request rebuilds it.
func (f *Factory) SetConfig(provider models.ModelType, config *Config) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.configs[provider] = config
	if client, ok := f.clients[provider]; ok {
		_ = client.Close()
		delete(f.clients, provider)
	}
}

// CreateClient returns the cached client for a model type, constructing it
// on first use. Unknown model types are caller misuse and are surfaced.
func (f *Factory) CreateClient(provider models.ModelType) (Client, error) {
	f.mutex.RLock()
	if client, ok := f.clients[provider]; ok {
		f.mutex.RUnlock()
		return client, nil
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()

	// Another goroutine may have built it while we waited for the lock.
	if client, ok := f.clients[provider]; ok {
		return client, nil
	}

	creator, ok := f.creators[provider]
	if !ok {
		return nil, NewUnsupportedModelError(provider)
	}

	config := f.configs[provider]
	if config == nil {
		config = &Config{Provider: provider}
	}

	client, err := creator(config)
	if err != nil {
		return nil, err
	}

	f.clients[provider] = client
	f.log.WithFields(logrus.Fields{
		"provider": provider,
		"model":    client.Model(),
	}).Info("model client initialized")
	return client, nil
}

// ListProviders returns every registered model type, sorted for stable output.
func (f *Factory) ListProviders() []models.ModelType {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	providers := make([]models.ModelType, 0, len(f.creators))
	for p := range f.creators {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// ListActive returns the model types with a live cached client.
func (f *Factory) ListActive() []models.ModelType {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	active := make([]models.ModelType, 0, len(f.clients))
	for p := range f.clients {
		active = append(active, p)
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active
}

// Close shuts down every cached client.
func (f *Factory) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for p, client := range f.clients {
		if err := client.Close(); err != nil {
			f.log.WithField("provider", p).WithError(err).Warn("client close failed")
		}
		delete(f.clients, p)
	}
	return nil
}
