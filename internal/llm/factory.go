package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nulzo/chat-router/internal/config"
)

const (
	FamilyChatCompletion    = "chat_completion"
	FamilyMessages          = "messages"
	FamilyContentGeneration = "content_generation"
	FamilySingleMessage     = "single_message"
	FamilyQuestion          = "question"
	FamilyRecommendation    = "recommendation"
	FamilyGeneric           = "generic"
	FamilyLocalChat         = "local_chat"
)

// defaultFamilies maps well-known provider ids to their wire family. Any id
// not listed here, and without an explicit family in config, is generic.
var defaultFamilies = map[string]string{
	"openai":     FamilyChatCompletion,
	"claude":     FamilyMessages,
	"gemini":     FamilyContentGeneration,
	"cancerChat": FamilySingleMessage,
	"aiPentest":  FamilyRecommendation,
	"ollama":     FamilyLocalChat,
}

var (
	mu       sync.RWMutex
	families = make(map[string]Family)
)

// Register makes a family available by name. It panics on duplicates.
func Register(f Family) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := families[f.Name()]; exists {
		panic(fmt.Sprintf("provider family %s already registered", f.Name()))
	}
	families[f.Name()] = f
}

func Get(name string) (Family, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := families[name]
	if !ok {
		return nil, fmt.Errorf("provider family not registered: %s", name)
	}
	return f, nil
}

// Registered lists registered family names in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FamilyName resolves the family a provider speaks.
func FamilyName(p config.ProviderConfig) string {
	if p.Family != "" {
		return p.Family
	}
	if name, ok := defaultFamilies[p.ID]; ok {
		return name
	}
	return FamilyGeneric
}

// FamilyFor returns the registered family for a provider.
func FamilyFor(p config.ProviderConfig) (Family, error) {
	return Get(FamilyName(p))
}
