package crm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakline/callbridge/internal/phone"
)

// Repository is the persistence boundary for leads and customers. Phone
// lookups take the normalized key so that every raw spelling of a number
// resolves identically.
type Repository interface {
	CreateLead(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	FindLeadByPhone(ctx context.Context, orgID string, key phone.Normalized) (*Lead, error)
	FindCustomerByPhone(ctx context.Context, orgID string, key phone.Normalized) (*Customer, error)
}

// InMemoryRepository backs Repository with maps, for tests and local runs.
type InMemoryRepository struct {
	mu        sync.RWMutex
	leads     map[string]*Lead
	customers map[string]*Customer
	now       func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:     make(map[string]*Lead),
		customers: make(map[string]*Customer),
		now:       time.Now,
	}
}

// CreateLead inserts a lead keyed by a generated id.
func (r *InMemoryRepository) CreateLead(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	key, err := req.Validate()
	if err != nil {
		return nil, err
	}
	lead := &Lead{
		ID:          uuid.New().String(),
		OrgID:       req.OrgID,
		Name:        req.Name,
		Phone:       req.Phone,
		PhoneDigits: string(key),
		Email:       req.Email,
		Source:      req.Source,
		CreatedAt:   r.now().UTC(),
	}
	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()
	return lead, nil
}

// FindLeadByPhone returns the most recently created lead with the key.
func (r *InMemoryRepository) FindLeadByPhone(ctx context.Context, orgID string, key phone.Normalized) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var candidates []*Lead
	for _, lead := range r.leads {
		if lead.OrgID == orgID && lead.PhoneDigits == string(key) {
			candidates = append(candidates, lead)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrLeadNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

// FindCustomerByPhone returns the most recently created customer with the key.
func (r *InMemoryRepository) FindCustomerByPhone(ctx context.Context, orgID string, key phone.Normalized) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var candidates []*Customer
	for _, cust := range r.customers {
		if cust.OrgID == orgID && cust.PhoneDigits == string(key) {
			candidates = append(candidates, cust)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrCustomerNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

// AddCustomer seeds a customer record; test helper.
func (r *InMemoryRepository) AddCustomer(cust *Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cust.ID == "" {
		cust.ID = uuid.New().String()
	}
	r.customers[cust.ID] = cust
}

// AddLead seeds a lead record; test helper.
func (r *InMemoryRepository) AddLead(lead *Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	r.leads[lead.ID] = lead
}
