package signaling

import "sync"

// maxPeers is the number of connections that can share one password.
const maxPeers = 2

// PairOutcome describes what a join did to its entry.
type PairOutcome int

const (
	// PairFirst means the connection is waiting alone under the password.
	PairFirst PairOutcome = iota + 1

	// PairPaired means the connection completed the pair.
	PairPaired
)

func (o PairOutcome) String() string {
	switch o {
	case PairFirst:
		return "first"
	case PairPaired:
		return "paired"
	}
	return "unknown"
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
	Waiting     int `json:"waiting"`
	Paired      int `json:"paired"`
	Reserved    int `json:"reserved"`
}

// Registry maps passwords to the connections joined under them. An entry
// holds at most two clients, in join order, and is deleted as soon as it is
// empty. Freshly issued passwords are reserved for their client until the
// client joins or leaves so they are never handed out twice.
//
// The registry only records membership. It never writes to or closes a
// client.
type Registry struct {
	mu sync.Mutex

	gen *PasswordGenerator

	entries  map[string][]*Client
	reserved map[string]*Client
	holds    map[*Client]string
}

// NewRegistry creates an empty registry issuing passwords from gen.
func NewRegistry(gen *PasswordGenerator) *Registry {
	return &Registry{
		gen:      gen,
		entries:  make(map[string][]*Client),
		reserved: make(map[string]*Client),
		holds:    make(map[*Client]string),
	}
}

// Issue generates a password that is neither an active entry nor reserved,
// and reserves it for c.
func (r *Registry) Issue(c *Client) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	password, err := r.gen.Generate(r.inUseLocked)
	if err != nil {
		return "", err
	}

	r.releaseLocked(c)
	r.reserved[password] = c
	r.holds[c] = password
	return password, nil
}

// Join appends c to the entry for password, creating it if needed. When the
// join completes a pair, the member that joined first is returned so the
// caller can start negotiation with it.
func (r *Registry) Join(password string, c *Client) (PairOutcome, *Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.entries[password]
	for _, m := range members {
		if m == c {
			return 0, nil, ErrAlreadyJoined
		}
	}
	if len(members) >= maxPeers {
		return 0, nil, ErrRegistryFull
	}

	r.releaseLocked(c)
	members = append(members, c)
	r.entries[password] = members

	if len(members) == maxPeers {
		return PairPaired, members[0], nil
	}
	return PairFirst, nil, nil
}

// PartnerOf returns the other member of c's entry. It returns nil when c is
// not a member or is alone.
func (r *Registry) PartnerOf(password string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	return partnerLocked(r.entries[password], c)
}

// Leave removes c from the entry for password and deletes the entry once it
// is empty. It also drops any reservation held by c. It reports the member
// left behind, if any, and whether c was removed. Calling it again for the
// same pair is a no-op.
func (r *Registry) Leave(password string, c *Client) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseLocked(c)

	members, ok := r.entries[password]
	if !ok {
		return nil, false
	}

	partner := partnerLocked(members, c)
	kept := members[:0]
	removed := false
	for _, m := range members {
		if m == c {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return nil, false
	}

	if len(kept) == 0 {
		delete(r.entries, password)
	} else {
		r.entries[password] = kept
	}
	return partner, true
}

// Release drops the reservation held by c, if any.
func (r *Registry) Release(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseLocked(c)
}

// Members returns the number of clients joined under password.
func (r *Registry) Members(password string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries[password])
}

// Active reports whether password is an entry in the registry.
func (r *Registry) Active(password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[password]
	return ok
}

// Stats returns the entry and reservation counts. Connections is left to the
// caller, which owns the clients.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Sessions: len(r.entries),
		Reserved: len(r.reserved),
	}
	for _, members := range r.entries {
		if len(members) >= maxPeers {
			s.Paired++
		} else {
			s.Waiting++
		}
	}
	return s
}

func (r *Registry) inUseLocked(password string) bool {
	if _, ok := r.entries[password]; ok {
		return true
	}
	_, ok := r.reserved[password]
	return ok
}

func (r *Registry) releaseLocked(c *Client) {
	password, ok := r.holds[c]
	if !ok {
		return
	}
	delete(r.holds, c)
	if r.reserved[password] == c {
		delete(r.reserved, password)
	}
}

func partnerLocked(members []*Client, c *Client) *Client {
	member := false
	var partner *Client
	for _, m := range members {
		if m == c {
			member = true
		} else {
			partner = m
		}
	}
	if !member {
		return nil
	}
	return partner
}
