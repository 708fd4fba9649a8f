package core

// #region config
// Config is the immutable registration for one core: identity, display
// metadata, and the related-core adjacency used for synergy scoring.
type Config struct {
	ID          string
	Name        string
	Description string
	Color       string
	Icon        string
	Related     []string
}

// #endregion config

// #region default-configs
// defaultConfigs is the fixed six-core table. Related lists are symmetric
// and reference ids from this table only.
var defaultConfigs = []Config{
	{
		ID:          "optimism",
		Name:        "Optimism",
		Description: "Finding light and possibility in everyday moments",
		Color:       "#F5A623",
		Icon:        "sunrise",
		Related:     []string{"resilience", "creativity"},
	},
	{
		ID:          "resilience",
		Name:        "Resilience",
		Description: "Recovering and growing through difficulty",
		Color:       "#4A90D9",
		Icon:        "mountain",
		Related:     []string{"optimism", "self_awareness"},
	},
	{
		ID:          "self_awareness",
		Name:        "Self-Awareness",
		Description: "Noticing your own patterns, feelings, and needs",
		Color:       "#9B59B6",
		Icon:        "mirror",
		Related:     []string{"resilience", "empathy"},
	},
	{
		ID:          "empathy",
		Name:        "Empathy",
		Description: "Sensing and honoring what others feel",
		Color:       "#E8638C",
		Icon:        "heart",
		Related:     []string{"self_awareness", "curiosity"},
	},
	{
		ID:          "creativity",
		Name:        "Creativity",
		Description: "Making new connections and giving them form",
		Color:       "#E67E22",
		Icon:        "spark",
		Related:     []string{"optimism", "curiosity"},
	},
	{
		ID:          "curiosity",
		Name:        "Curiosity",
		Description: "Staying open to questions and the unfamiliar",
		Color:       "#2ECC71",
		Icon:        "compass",
		Related:     []string{"empathy", "creativity"},
	},
}

// #endregion default-configs

// #region registry
// Registry resolves core ids to their immutable configuration. Iteration
// order is registration order, which is the deterministic order used for
// initial state, recommendations, and storage round-trips.
type Registry struct {
	order []string
	byID  map[string]Config
}

// NewRegistry builds a registry from a config table, keeping the first
// occurrence of any duplicated id.
func NewRegistry(configs []Config) *Registry {
	r := &Registry{byID: make(map[string]Config, len(configs))}
	for _, c := range configs {
		if _, dup := r.byID[c.ID]; dup {
			continue
		}
		r.byID[c.ID] = c
		r.order = append(r.order, c.ID)
	}
	return r
}

// DefaultRegistry returns the standard six-core registry.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultConfigs)
}

// Get looks up one core's configuration by id.
func (r *Registry) Get(id string) (Config, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Len returns the number of registered cores.
func (r *Registry) Len() int {
	return len(r.order)
}

// IDs returns every registered core id in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every configuration in registration order.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Related returns the related-core ids configured for id, nil when id is
// unknown. Entries that do not resolve to a registered core are kept; it is
// the reader's job to skip them.
func (r *Registry) Related(id string) []string {
	c, ok := r.byID[id]
	if !ok {
		return nil
	}
	out := make([]string, len(c.Related))
	copy(out, c.Related)
	return out
}

// #endregion registry
