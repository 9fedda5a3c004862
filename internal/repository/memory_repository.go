package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/rentledger/internal/models"
)

// MemoryRepository implements the Repository interface in process memory.
// A single mutex covers every table, which also serialises ledger writers per key.
type MemoryRepository struct {
	mu sync.RWMutex

	users      map[string]models.User
	buildings  map[int64]models.Building
	categories map[int64]models.Category
	employees  map[int64]models.Employee
	settings   map[int64]models.Settings
	portfolio  *models.PortfolioSettings
	social     map[socialKey]models.SocialSecurityContribution
	entries    map[string]models.LedgerEntry

	nextID   int64
	lastTime time.Time
}

type socialKey struct {
	employeeID  int64
	month, year int
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[string]models.User),
		buildings:  make(map[int64]models.Building),
		categories: make(map[int64]models.Category),
		employees:  make(map[int64]models.Employee),
		settings:   make(map[int64]models.Settings),
		social:     make(map[socialKey]models.SocialSecurityContribution),
		entries:    make(map[string]models.LedgerEntry),
	}
}

// now returns a strictly increasing timestamp so creation order is preserved. Caller holds mu.
func (r *MemoryRepository) now() time.Time {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(r.lastTime) {
		t = r.lastTime.Add(time.Microsecond)
	}
	r.lastTime = t
	return t
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryRepository) CreateBuilding(ctx context.Context, building *models.Building) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.buildings {
		if b.Code == building.Code {
			return ErrDuplicate
		}
	}
	building.ID = r.id()
	building.CreatedAt = r.now()
	r.buildings[building.ID] = *building
	return nil
}

func (r *MemoryRepository) GetBuilding(ctx context.Context, id int64) (*models.Building, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buildings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *MemoryRepository) ListBuildings(ctx context.Context) ([]models.Building, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Building, 0, len(r.buildings))
	for _, b := range r.buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	category.ID = r.id()
	r.categories[category.ID] = *category
	return nil
}

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	employee.ID = r.id()
	r.employees[employee.ID] = *employee
	return nil
}

func (r *MemoryRepository) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetSettings(ctx context.Context, buildingID int64) (*models.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[buildingID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepository) ListSettings(ctx context.Context) ([]models.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Settings, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepository) UpsertSettings(ctx context.Context, settings *models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings.UpdatedAt = r.now()
	r.settings[settings.BuildingID] = *settings
	return nil
}

func (r *MemoryRepository) GetOrCreatePortfolioSettings(ctx context.Context) (*models.PortfolioSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.portfolio == nil {
		r.portfolio = &models.PortfolioSettings{ID: 1, Values: models.FieldValues{}, UpdatedAt: r.now()}
	}
	return r.portfolioCopy(), nil
}

func (r *MemoryRepository) UpdatePortfolioSettings(ctx context.Context, values models.FieldValues) (*models.PortfolioSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make(models.FieldValues, len(values))
	for k, v := range values {
		copied[k] = v
	}
	r.portfolio = &models.PortfolioSettings{ID: 1, Values: copied, UpdatedAt: r.now()}
	return r.portfolioCopy(), nil
}

func (r *MemoryRepository) portfolioCopy() *models.PortfolioSettings {
	ps := *r.portfolio
	ps.Values = make(models.FieldValues, len(r.portfolio.Values))
	for k, v := range r.portfolio.Values {
		ps.Values[k] = v
	}
	return &ps
}

func (r *MemoryRepository) UpsertSocialSecurityContribution(ctx context.Context, c *models.SocialSecurityContribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.social[socialKey{c.EmployeeID, c.Month, c.Year}] = *c
	return nil
}

func (r *MemoryRepository) ListSocialSecurityContributions(ctx context.Context, month, year int) ([]models.SocialSecurityContribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.SocialSecurityContribution
	for k, c := range r.social {
		if k.month == month && k.year == year {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (r *MemoryRepository) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	stored := *entry
	if entry.TargetID != nil {
		id := *entry.TargetID
		stored.TargetID = &id
	}
	r.entries[entry.ID] = stored

	return r.listLocked(KeyOf(stored)), nil
}

func (r *MemoryRepository) RemoveLedgerEntry(ctx context.Context, id string) (*models.LedgerEntry, []models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, nil, nil
	}
	delete(r.entries, id)

	return &entry, r.listLocked(KeyOf(entry)), nil
}

func (r *MemoryRepository) GetLedgerEntry(ctx context.Context, id string) (*models.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *MemoryRepository) ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]models.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked(filter), nil
}

func (r *MemoryRepository) ListLedgerEntriesByPeriod(ctx context.Context, month, year int) ([]models.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.LedgerEntry
	for _, e := range r.entries {
		if e.Month == month && e.Year == year {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepository) listLocked(filter LedgerFilter) []models.LedgerEntry {
	out := []models.LedgerEntry{}
	for _, e := range r.entries {
		if matches(filter, e) {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out
}

func matches(f LedgerFilter, e models.LedgerEntry) bool {
	if e.TargetKind != f.TargetKind || e.Month != f.Month || e.Year != f.Year {
		return false
	}
	if f.FieldName != "" && e.FieldName != f.FieldName {
		return false
	}
	switch {
	case f.TargetID == nil && e.TargetID == nil:
		return true
	case f.TargetID == nil || e.TargetID == nil:
		return false
	}
	return *f.TargetID == *e.TargetID
}

func sortNewestFirst(entries []models.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
