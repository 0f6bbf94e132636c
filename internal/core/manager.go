package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"acm/internal/domain"
	"acm/internal/source"
	"acm/internal/storage/config"

	log "github.com/sirupsen/logrus"
)

// ProfileInput is a profile as entered by the user
type ProfileInput struct {
	Name          string
	Group         string // Blank asks for auto-detection
	Source        string // Blank means custom
	Endpoint      string
	ProxyPassword string
	Key           string
	Model         string
}

// SaveResult describes what Save did
type SaveResult struct {
	Index     int
	Created   bool
	AutoGroup string    // Detected group, when none was entered
	Sync      *SyncPlan // Other profiles still on the old endpoint, if any
}

// ApplyResult describes an application
type ApplyResult struct {
	Index     int
	Profile   domain.Profile
	Signature domain.Signature
	Wait      *ModelWait // Pending model selection, nil without a model
}

// ImportResult counts what Import did
type ImportResult struct {
	Added   int
	Updated int
	Skipped int
}

// ListView is the ranked, annotated profile list
type ListView struct {
	Mode     domain.SortMode
	Sections []Section
	Active   int // Index of the live profile, or -1
	Total    int // Profiles before filtering
}

// ManagerOptions wires a ProfileManager to its collaborators. Only Store is
// required.
type ManagerOptions struct {
	Store     SettingsStore
	Vault     Vault
	State     ConnectionStateProvider
	Connector Connector
	Lister    ModelLister
	Cache     ModelCache
	Locale    string
	Wait      WaitPolicy
	Now       func() time.Time
}

// ProfileManager owns the settings root and performs every user action on it
type ProfileManager struct {
	opts   ManagerOptions
	ranker *Ranker

	mu       sync.Mutex
	settings *domain.Settings
	wait     *ModelWait
}

// NewProfileManager loads and migrates the settings root
func NewProfileManager(opts ManagerOptions) (*ProfileManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: settings store is required", domain.ErrInvalidConfig)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	doc, err := opts.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	settings, changed := Normalize(doc, opts.Now())

	m := &ProfileManager{
		opts:     opts,
		ranker:   NewRanker(opts.Locale),
		settings: settings,
	}
	if changed {
		log.WithField("profiles", len(settings.Profiles)).Info("migrated settings to current shape")
		m.persist()
	}
	return m, nil
}

func (m *ProfileManager) persist() {
	m.opts.Store.RequestPersist(m.settings)
}

// Profiles returns a copy of the stored profiles
func (m *ProfileManager) Profiles() []domain.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Profile, len(m.settings.Profiles))
	for i, p := range m.settings.Profiles {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of the profile at index
func (m *ProfileManager) Get(index int) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.settings.Profile(index)
	if err != nil {
		return domain.Profile{}, err
	}
	return p.Clone(), nil
}

// Find returns the index of the profile with the exact name, or -1
func (m *ProfileManager) Find(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.IndexByName(name)
}

// SortMode returns the persisted list order
func (m *ProfileManager) SortMode() domain.SortMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.SortMode
}

// LastApplied returns the signature of the last applied profile, if any
func (m *ProfileManager) LastApplied() *domain.Signature {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings.LastApplied == nil {
		return nil
	}
	sig := *m.settings.LastApplied
	return &sig
}

// UsageHistory returns a copy of the usage log
func (m *ProfileManager) UsageHistory() []domain.UsageEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.settings.UsageHistory)
}

// Save creates a profile, or updates the one at editing. With editing < 0 a
// profile with the same name is updated instead of duplicated. Invalid
// input is rejected before anything changes.
func (m *ProfileManager) Save(in ProfileInput, editing int) (*SaveResult, error) {
	p, err := buildProfile(in)
	if err != nil {
		return nil, err
	}

	res := &SaveResult{}
	if p.Group == "" {
		p.Group = DetectGroup(&p)
		res.AutoGroup = p.Group
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	target := editing
	if editing >= 0 {
		if _, err := m.settings.Profile(editing); err != nil {
			return nil, err
		}
	} else {
		target = m.settings.IndexByName(p.Name)
	}

	src := p.NormalizedSource()
	if target < 0 {
		m.settings.Profiles = append(m.settings.Profiles, p)
		res.Index = len(m.settings.Profiles) - 1
		res.Created = true
		log.WithFields(log.Fields{"profile": p.Name, "source": src}).Info("profile created")
		m.persist()
		return res, nil
	}

	prev := m.settings.Profiles[target]
	if prev.SecretIDs[src.SecretKey()] != "" && prev.Key == p.Key && prev.NormalizedSource() == src {
		p.SecretIDs = maps.Clone(prev.SecretIDs)
	}
	m.settings.Profiles[target] = p
	res.Index = target

	if prev.NormalizedSource() == src {
		res.Sync = PlanSync(m.settings.Profiles, target, src, prev.EndpointValue(), p.EndpointValue())
	}

	log.WithFields(log.Fields{"profile": p.Name, "source": src, "index": target}).Info("profile updated")
	m.persist()
	return res, nil
}

func buildProfile(in ProfileInput) (domain.Profile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Profile{}, domain.ErrNameRequired
	}

	raw := strings.TrimSpace(in.Source)
	if raw == "" {
		raw = string(domain.SourceCustom)
	}
	if !domain.IsSupportedSource(raw) {
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, raw)
	}
	p := domain.Profile{
		Name:     name,
		Group:    strings.TrimSpace(in.Group),
		Source:   raw,
		Endpoint: strings.TrimSpace(in.Endpoint),
		Key:      strings.TrimSpace(in.Key),
		Model:    strings.TrimSpace(in.Model),
	}
	switch domain.Source(raw) {
	case domain.SourceCustom:
		if p.Endpoint == "" && p.Key == "" {
			return domain.Profile{}, domain.ErrEndpointOrKeyRequired
		}
	case domain.SourceMakerSuite:
		p.ProxyPassword = strings.TrimSpace(in.ProxyPassword)
		if p.Endpoint == "" && p.Key == "" {
			log.WithField("profile", name).Info("no reverse proxy or key, the host's saved AI Studio key will be used")
		}
	}
	return p, nil
}

// ApplySync rewrites the endpoints of a plan returned by Save
func (m *ProfileManager) ApplySync(plan *SyncPlan) (int, error) {
	if plan == nil {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := ApplySync(m.settings, plan)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"source":   plan.Source,
		"endpoint": plan.NewEndpoint,
		"count":    n,
	}).Info("synced endpoint across profiles")
	m.persist()
	return n, nil
}

// Delete removes the profile at index. The last applied signature is
// cleared when no remaining profile carries it.
func (m *ProfileManager) Delete(index int) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.settings.Profile(index)
	if err != nil {
		return domain.Profile{}, err
	}
	removed := p.Clone()
	m.settings.Profiles = slices.Delete(m.settings.Profiles, index, index+1)

	if m.settings.LastApplied != nil && !hasProfileWithSignature(m.settings.Profiles, m.settings.LastApplied) {
		m.settings.LastApplied = nil
	}

	log.WithFields(log.Fields{"profile": removed.Name, "index": index}).Info("profile deleted")
	m.persist()
	return removed, nil
}

// Apply makes the profile at index the host's live connection: it links
// the key in the vault, pushes the connection fields, records the usage and
// then waits in the background for the host to connect before selecting the
// model. A pending wait from an earlier Apply is cancelled.
func (m *ProfileManager) Apply(ctx context.Context, index int) (*ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.Connector == nil {
		return nil, fmt.Errorf("%w: no host configured", domain.ErrInvalidConfig)
	}

	stored, err := m.settings.Profile(index)
	if err != nil {
		return nil, err
	}
	if !domain.IsSupportedSource(stored.Source) {
		return nil, fmt.Errorf("%w: %q is no longer supported, edit the profile and pick %s or %s",
			domain.ErrUnsupportedSource, stored.Source,
			domain.SourceLabel(string(domain.SourceCustom)), domain.SourceLabel(string(domain.SourceMakerSuite)))
	}
	src := stored.NormalizedSource()
	logger := log.WithFields(log.Fields{"profile": stored.Name, "source": src, "index": index})

	if m.opts.Vault != nil {
		before := stored.SecretID()
		if err := LinkSecret(ctx, m.opts.Vault, stored); err != nil {
			return nil, fmt.Errorf("linking key for %s: %w", stored.Name, err)
		}
		if stored.SecretID() != before {
			m.persist()
		}
	}

	m.cancelWaitLocked()

	req := domain.ConnectRequest{Source: src, Endpoint: stored.EndpointValue()}
	if src == domain.SourceMakerSuite {
		req.ProxyPassword = stored.ProxyPassword
	}
	model := strings.TrimSpace(stored.Model)
	if model != "" {
		// Set early; the wait below selects it again once the list loads
		if err := m.opts.Connector.SelectModel(ctx, src, model); err != nil {
			logger.WithError(err).Warn("preselecting model")
		}
	}
	if err := m.opts.Connector.Connect(ctx, req); err != nil {
		return nil, fmt.Errorf("connecting %s: %w", stored.Name, err)
	}

	sig := BuildSignature(stored, "")
	m.settings.UsageHistory = RecordApplication(m.settings.UsageHistory, sig, m.opts.Now())
	m.settings.LastApplied = &sig
	m.persist()
	logger.WithField("endpoint", req.Endpoint).Info("profile applied")

	res := &ApplyResult{Index: index, Profile: stored.Clone(), Signature: sig}
	if model != "" {
		m.wait = StartModelWait(ctx, m.opts.Connector, src, model, m.opts.Wait)
		res.Wait = m.wait
	}
	return res, nil
}

// CancelWait stops a pending model selection, if any
func (m *ProfileManager) CancelWait() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelWaitLocked()
}

func (m *ProfileManager) cancelWaitLocked() {
	if m.wait != nil {
		m.wait.Cancel()
		m.wait = nil
	}
}

// ActiveIndex locates the profile matching the host's live connection. A
// failing state provider degrades to the last applied signature.
func (m *ProfileManager) ActiveIndex(ctx context.Context) int {
	var (
		live    domain.ConnectionState
		liveErr error
	)
	if m.opts.State != nil {
		live, liveErr = m.opts.State.ConnectionState(ctx)
		if liveErr != nil {
			log.WithError(liveErr).Debug("reading live connection state")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeIndexLocked(live, m.opts.State != nil && liveErr == nil)
}

func (m *ProfileManager) activeIndexLocked(live domain.ConnectionState, haveLive bool) int {
	if haveLive {
		return LocateActive(m.settings.Profiles, live, m.settings.LastApplied)
	}
	if m.settings.LastApplied == nil {
		return -1
	}
	for i := range m.settings.Profiles {
		if MatchesSignature(&m.settings.Profiles[i], m.settings.LastApplied) {
			return i
		}
	}
	return -1
}

// Search returns the indices of profiles whose name, group, source label,
// endpoint or model contain query, ignoring case. A blank query matches
// everything.
func (m *ProfileManager) Search(query string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchLocked(query)
}

func (m *ProfileManager) searchLocked(query string) []int {
	keyword := strings.ToLower(strings.TrimSpace(query))
	out := []int{}
	for i := range m.settings.Profiles {
		p := &m.settings.Profiles[i]
		if keyword == "" || strings.Contains(searchText(p), keyword) {
			out = append(out, i)
		}
	}
	return out
}

func searchText(p *domain.Profile) string {
	fields := []string{p.Name, ResolveGroup(p), domain.SourceLabel(p.Source), p.EndpointValue(), p.Model}
	var parts []string
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// View ranks the profiles matching query for display
func (m *ProfileManager) View(ctx context.Context, query string) *ListView {
	var (
		live    domain.ConnectionState
		liveErr error
	)
	if m.opts.State != nil {
		live, liveErr = m.opts.State.ConnectionState(ctx)
		if liveErr != nil {
			log.WithError(liveErr).Debug("reading live connection state")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var include []int
	if strings.TrimSpace(query) != "" {
		include = m.searchLocked(query)
	}

	sections := m.ranker.Rank(m.settings.Profiles, include, m.settings.UsageHistory, m.settings.SortMode, m.opts.Now())
	for i := range sections {
		if sections[i].Group != "" {
			sections[i].Collapsed = m.settings.CollapsedGroups[sections[i].Group]
		}
	}
	return &ListView{
		Mode:     m.settings.SortMode,
		Sections: sections,
		Active:   m.activeIndexLocked(live, m.opts.State != nil && liveErr == nil),
		Total:    len(m.settings.Profiles),
	}
}

// SetSortMode persists the list order
func (m *ProfileManager) SetSortMode(mode domain.SortMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.SortMode == mode {
		return
	}
	m.settings.SortMode = mode
	m.persist()
}

// CycleSortMode advances to the next list order and returns it
func (m *ProfileManager) CycleSortMode() domain.SortMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.SortMode = m.settings.SortMode.Next()
	m.persist()
	return m.settings.SortMode
}

// ToggleGroup flips whether a group is shown collapsed and returns the new
// state
func (m *ProfileManager) ToggleGroup(group string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	collapsed := !m.settings.CollapsedGroups[group]
	if collapsed {
		m.settings.CollapsedGroups[group] = true
	} else {
		delete(m.settings.CollapsedGroups, group)
	}
	m.persist()
	return collapsed
}

// ListModels lists the models available for a profile being entered. The
// key is activated in the vault first so the host can use it. Listings
// are cached per endpoint unless refresh is set; a refresh that fails drops
// the cached listing.
func (m *ProfileManager) ListModels(ctx context.Context, in ProfileInput, refresh bool) ([]string, error) {
	raw := strings.TrimSpace(in.Source)
	if raw == "" {
		raw = string(domain.SourceCustom)
	}
	if !domain.IsSupportedSource(raw) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, raw)
	}
	src := domain.Source(raw)
	endpoint := strings.TrimSpace(in.Endpoint)
	key := strings.TrimSpace(in.Key)

	if src == domain.SourceCustom && endpoint == "" {
		return nil, fmt.Errorf("%w: enter the custom URL first", domain.ErrModelList)
	}
	if m.opts.Lister == nil {
		return nil, fmt.Errorf("%w: no model lister configured", domain.ErrModelList)
	}

	if key != "" && m.opts.Vault != nil {
		label := "ACM: Fetch models (Custom)"
		if src == domain.SourceMakerSuite {
			label = "ACM: Fetch models (AI Studio)"
		}
		if src == domain.SourceCustom || endpoint == "" {
			if _, err := EnsureSecret(ctx, m.opts.Vault, src.SecretKey(), key, label); err != nil {
				return nil, err
			}
		}
	}

	if m.opts.Cache != nil && !refresh {
		models, ok, err := m.opts.Cache.Get(string(src), endpoint)
		if err != nil {
			log.WithError(err).Debug("reading model cache")
		} else if ok {
			return models, nil
		}
	}

	models, err := m.opts.Lister.ListModels(ctx, source.ListRequest{
		Source:        src,
		Endpoint:      endpoint,
		Key:           key,
		ProxyPassword: strings.TrimSpace(in.ProxyPassword),
	})
	if err != nil {
		if refresh && m.opts.Cache != nil {
			if derr := m.opts.Cache.Delete(string(src), endpoint); derr != nil {
				log.WithError(derr).Warn("dropping cached model list")
			}
		}
		if !errors.Is(err, domain.ErrModelList) && !errors.Is(err, domain.ErrAuthRequired) {
			err = fmt.Errorf("%w: %w", domain.ErrModelList, err)
		}
		return nil, err
	}

	if m.opts.Cache != nil {
		if err := m.opts.Cache.Store(string(src), endpoint, models); err != nil {
			log.WithError(err).Warn("caching model list")
		}
	}
	return models, nil
}

// Export serializes the profiles at indices, or all profiles when indices
// is nil, without keys or vault ids
func (m *ProfileManager) Export(indices []int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var selected []domain.Profile
	if indices == nil {
		selected = m.settings.Profiles
	} else {
		for _, i := range indices {
			p, err := m.settings.Profile(i)
			if err != nil {
				return nil, err
			}
			selected = append(selected, *p)
		}
	}
	return config.ExportProfiles(selected)
}

// Import merges exported profiles. A profile whose name exists updates the
// stored one and keeps its key and vault ids; invalid entries are skipped.
func (m *ProfileManager) Import(data []byte) (*ImportResult, error) {
	profiles, err := config.ImportProfiles(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res := &ImportResult{}
	for _, in := range profiles {
		existing := m.settings.IndexByName(strings.TrimSpace(in.Name))
		input := ProfileInput{
			Name:     in.Name,
			Group:    in.Group,
			Source:   in.Source,
			Endpoint: in.Endpoint,
			Model:    in.Model,
		}
		if existing >= 0 {
			prev := m.settings.Profiles[existing]
			input.Key = prev.Key
			input.ProxyPassword = prev.ProxyPassword
		}

		p, err := buildProfile(input)
		if err != nil {
			log.WithError(err).WithField("profile", in.Name).Warn("skipping imported profile")
			res.Skipped++
			continue
		}
		if p.Group == "" {
			p.Group = DetectGroup(&p)
		}

		if existing >= 0 {
			prev := m.settings.Profiles[existing]
			if prev.NormalizedSource() == p.NormalizedSource() {
				p.SecretIDs = maps.Clone(prev.SecretIDs)
			}
			m.settings.Profiles[existing] = p
			res.Updated++
			continue
		}
		m.settings.Profiles = append(m.settings.Profiles, p)
		res.Added++
	}

	if res.Added+res.Updated > 0 {
		if m.settings.LastApplied != nil && !hasProfileWithSignature(m.settings.Profiles, m.settings.LastApplied) {
			m.settings.LastApplied = nil
		}
		m.persist()
	}
	log.WithFields(log.Fields{"added": res.Added, "updated": res.Updated, "skipped": res.Skipped}).Info("profiles imported")
	return res, nil
}

// Close cancels any pending model selection and flushes pending writes
func (m *ProfileManager) Close() error {
	m.CancelWait()
	if err := m.opts.Store.Flush(); err != nil {
		return fmt.Errorf("flushing settings: %w", err)
	}
	return nil
}
