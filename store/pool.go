package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Pool wraps a UserPool aggregate with the mutex and secondary indexes the
// concurrency model requires: every mutating operation acquires mu for the
// full read-modify-write-persist sequence, so two mutations against the
// same pool never interleave. Two different pools never share a lock.
type Pool struct {
	mu      sync.RWMutex
	backend Backend
	doc     *UserPool

	byUsernameFold map[string]string // lowercase username -> canonical username
	byEmail        map[string]string // lowercase email -> canonical username
	byPhone        map[string]string
	bySub          map[string]string
	byRefreshToken map[string]string // token -> username
}

// Load fetches and decodes the pool document identified by id, then
// rebuilds every secondary index from the canonical Users table. It
// returns ErrNotFound when the backend holds no document for id.
func Load(ctx context.Context, backend Backend, id string) (*Pool, error) {
	data, err := backend.Load(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, err
	}
	doc, err := unmarshalPool(data)
	if err != nil {
		return nil, err
	}
	p := &Pool{backend: backend, doc: doc}
	p.rebuildIndexes()
	return p, nil
}

// New constructs a brand-new pool document and persists it immediately.
func New(ctx context.Context, backend Backend, doc *UserPool) (*Pool, error) {
	if doc.CreationDate.IsZero() {
		doc.CreationDate = time.Now().UTC()
	}
	p := &Pool{backend: backend, doc: doc}
	p.rebuildIndexes()
	if err := p.persistLocked(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) rebuildIndexes() {
	p.byUsernameFold = make(map[string]string, len(p.doc.Users))
	p.byEmail = make(map[string]string, len(p.doc.Users))
	p.byPhone = make(map[string]string, len(p.doc.Users))
	p.bySub = make(map[string]string, len(p.doc.Users))
	p.byRefreshToken = make(map[string]string)

	for _, u := range p.doc.Users {
		p.indexUser(u)
	}
}

func (p *Pool) indexUser(u *User) {
	p.byUsernameFold[strings.ToLower(u.Username)] = u.Username
	p.bySub[u.Sub] = u.Username
	if email, ok := u.Attribute("email"); ok && email != "" {
		p.byEmail[strings.ToLower(email)] = u.Username
	}
	if phone, ok := u.Attribute("phone_number"); ok && phone != "" {
		p.byPhone[phone] = u.Username
	}
	for _, t := range u.RefreshTokens {
		p.byRefreshToken[t] = u.Username
	}
}

func (p *Pool) deindexUser(u *User) {
	delete(p.byUsernameFold, strings.ToLower(u.Username))
	delete(p.bySub, u.Sub)
	if email, ok := u.Attribute("email"); ok {
		delete(p.byEmail, strings.ToLower(email))
	}
	if phone, ok := u.Attribute("phone_number"); ok {
		delete(p.byPhone, phone)
	}
	for _, t := range u.RefreshTokens {
		delete(p.byRefreshToken, t)
	}
}

// ID returns the pool identifier.
func (p *Pool) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Id
}

// Snapshot returns a shallow copy of the pool's static configuration; the
// Users/Groups/Clients slices are not deep-copied and must not be mutated
// by the caller.
func (p *Pool) Snapshot() UserPool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.doc
}

func (p *Pool) findUserLocked(username string) *User {
	canonical, ok := p.byUsernameFold[strings.ToLower(username)]
	if !ok {
		return nil
	}
	for _, u := range p.doc.Users {
		if u.Username == canonical {
			return u
		}
	}
	return nil
}

// GetUserByUsername returns the user or (nil, false).
func (p *Pool) GetUserByUsername(username string) (*User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u := p.findUserLocked(username)
	return u, u != nil
}

// GetUserByEmail returns the user whose email attribute matches, or
// (nil, false).
func (p *Pool) GetUserByEmail(email string) (*User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	username, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, false
	}
	return p.findUserLocked(username), true
}

// GetUserBySub returns the user whose immutable Sub matches.
func (p *Pool) GetUserBySub(sub string) (*User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	username, ok := p.bySub[sub]
	if !ok {
		return nil, false
	}
	return p.findUserLocked(username), true
}

// GetUserByRefreshToken resolves the refresh-token reverse index required
// by invariant 1: every persisted token must resolve back to its owner.
func (p *Pool) GetUserByRefreshToken(token string) (*User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	username, ok := p.byRefreshToken[token]
	if !ok {
		return nil, false
	}
	return p.findUserLocked(username), true
}

// UserFilter is a restricted AWS-style attribute filter: "attr = \"value\""
// or "attr ^= \"value\"" (prefix match).
type UserFilter struct {
	Attribute string
	Op        string // "=" or "^="
	Value     string
}

// ParseUserFilter parses the wire filter grammar used by ListUsers. An
// empty expr yields a zero UserFilter that matches everything.
func ParseUserFilter(expr string) (UserFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return UserFilter{}, nil
	}
	for _, op := range []string{"^=", "="} {
		idx := strings.Index(expr, op)
		if idx <= 0 {
			continue
		}
		attr := strings.TrimSpace(expr[:idx])
		val := strings.TrimSpace(expr[idx+len(op):])
		val = strings.Trim(val, `"`)
		if attr == "" {
			continue
		}
		return UserFilter{Attribute: attr, Op: op, Value: val}, nil
	}
	return UserFilter{}, fmt.Errorf("store: unsupported filter expression %q", expr)
}

func (f UserFilter) matches(u *User) bool {
	if f.Attribute == "" {
		return true
	}
	v, ok := u.Attribute(f.Attribute)
	if !ok {
		return false
	}
	switch f.Op {
	case "^=":
		return strings.HasPrefix(v, f.Value)
	default:
		return v == f.Value
	}
}

// ListUsers returns a page ordered by Sub, honoring filter and a cursor
// paginationToken produced by a previous call. limit <= 0 means unbounded.
func (p *Pool) ListUsers(filter UserFilter, paginationToken string, limit int) (page []*User, nextToken string, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ordered := make([]*User, len(p.doc.Users))
	copy(ordered, p.doc.Users)
	sortUsersBySub(ordered)

	start := 0
	if paginationToken != "" {
		n, perr := strconv.Atoi(paginationToken)
		if perr != nil || n < 0 {
			return nil, "", fmt.Errorf("store: invalid pagination token")
		}
		start = n
	}
	if start > len(ordered) {
		start = len(ordered)
	}

	var matched []*User
	for _, u := range ordered[start:] {
		if filter.matches(u) {
			matched = append(matched, u)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}
	}

	consumed := start
	for _, u := range ordered[start:] {
		consumed++
		if len(matched) > 0 && matched[len(matched)-1] == u {
			break
		}
	}
	if consumed < len(ordered) {
		nextToken = strconv.Itoa(consumed)
	}

	return matched, nextToken, nil
}

func sortUsersBySub(users []*User) {
	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && users[j-1].Sub > users[j].Sub; j-- {
			users[j-1], users[j] = users[j], users[j-1]
		}
	}
}

// SaveUser upserts u: updates LastModifiedDate, rebuilds affected indexes,
// and persists before returning, matching the "persistence happens before
// return" discipline.
func (p *Pool) SaveUser(ctx context.Context, u *User) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u.LastModifiedDate = time.Now().UTC()

	for i, existing := range p.doc.Users {
		if strings.EqualFold(existing.Username, u.Username) {
			p.deindexUser(existing)
			p.doc.Users[i] = u
			p.indexUser(u)
			return p.persistLocked(ctx)
		}
	}

	if u.CreateDate.IsZero() {
		u.CreateDate = u.LastModifiedDate
	}
	p.doc.Users = append(p.doc.Users, u)
	p.indexUser(u)
	return p.persistLocked(ctx)
}

// DeleteUser removes the user and purges every refresh token it owned from
// the pool's reverse index, and removes it from any group membership list.
func (p *Pool) DeleteUser(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.findUserLocked(username)
	if u == nil {
		return ErrNotFound
	}
	p.deindexUser(u)

	filtered := p.doc.Users[:0]
	for _, existing := range p.doc.Users {
		if existing != u {
			filtered = append(filtered, existing)
		}
	}
	p.doc.Users = filtered

	for _, g := range p.doc.Groups {
		g.Usernames = removeString(g.Usernames, u.Username)
	}

	return p.persistLocked(ctx)
}

// StoreRefreshToken appends token to the user's set and the pool's reverse
// index; idempotent per testable property 4.
func (p *Pool) StoreRefreshToken(ctx context.Context, username, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.findUserLocked(username)
	if u == nil {
		return ErrNotFound
	}
	if u.HasRefreshToken(token) {
		return nil
	}
	u.RefreshTokens = append(u.RefreshTokens, token)
	p.byRefreshToken[token] = u.Username
	u.LastModifiedDate = time.Now().UTC()
	return p.persistLocked(ctx)
}

// RevokeAllRefreshTokens clears every refresh token owned by username,
// used by GlobalSignOut and AdminUserGlobalSignOut.
func (p *Pool) RevokeAllRefreshTokens(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.findUserLocked(username)
	if u == nil {
		return ErrNotFound
	}
	for _, t := range u.RefreshTokens {
		delete(p.byRefreshToken, t)
	}
	u.RefreshTokens = nil
	u.LastModifiedDate = time.Now().UTC()
	return p.persistLocked(ctx)
}

// MFAPreference is the argument to SetUserMFAPreference.
type MFAPreference struct {
	SMSMFAEnabled            bool
	SoftwareTokenMFAEnabled  bool
	SMSPreferredAsDefault    bool
	SoftwareTokenAsDefault   bool
}

// SetUserMFAPreference updates MFAOptions, UserMFASettingList and
// PreferredMfaSetting atomically. Applying the same preference twice is a
// no-op the second time (testable property 4).
func (p *Pool) SetUserMFAPreference(ctx context.Context, username string, pref MFAPreference) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.findUserLocked(username)
	if u == nil {
		return ErrNotFound
	}

	var settings []string
	var options []MFAOption
	if pref.SMSMFAEnabled {
		settings = append(settings, "SMS_MFA")
		options = append(options, MFAOption{DeliveryMedium: "SMS", AttributeName: "phone_number"})
	}
	if pref.SoftwareTokenMFAEnabled {
		settings = append(settings, "SOFTWARE_TOKEN_MFA")
	}

	preferred := ""
	if pref.SMSPreferredAsDefault && pref.SMSMFAEnabled {
		preferred = "SMS_MFA"
	} else if pref.SoftwareTokenAsDefault && pref.SoftwareTokenMFAEnabled {
		preferred = "SOFTWARE_TOKEN_MFA"
	}

	if equalStringSlices(u.UserMFASettingList, settings) &&
		u.PreferredMfaSetting == preferred &&
		len(u.MFAOptions) == len(options) {
		return nil
	}

	u.UserMFASettingList = settings
	u.MFAOptions = options
	u.PreferredMfaSetting = preferred
	u.LastModifiedDate = time.Now().UTC()
	return p.persistLocked(ctx)
}

// ListGroups returns every group ordered by Precedence, unset precedence
// sorting last.
func (p *Pool) ListGroups() []*Group {
	p.mu.RLock()
	defer p.mu.RUnlock()
	groups := make([]*Group, len(p.doc.Groups))
	copy(groups, p.doc.Groups)
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && precedenceLess(groups[j], groups[j-1]); j-- {
			groups[j-1], groups[j] = groups[j], groups[j-1]
		}
	}
	return groups
}

func precedenceLess(a, b *Group) bool {
	if a.Precedence == nil {
		return false
	}
	if b.Precedence == nil {
		return true
	}
	return *a.Precedence < *b.Precedence
}

// GetGroup returns the group by name.
func (p *Pool) GetGroup(name string) (*Group, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, g := range p.doc.Groups {
		if g.GroupName == name {
			return g, true
		}
	}
	return nil, false
}

// SaveGroup upserts a group definition.
func (p *Pool) SaveGroup(ctx context.Context, g *Group) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g.CreationDate.IsZero() {
		g.CreationDate = time.Now().UTC()
	}
	g.LastModifiedDate = time.Now().UTC()
	for i, existing := range p.doc.Groups {
		if existing.GroupName == g.GroupName {
			p.doc.Groups[i] = g
			return p.persistLocked(ctx)
		}
	}
	p.doc.Groups = append(p.doc.Groups, g)
	return p.persistLocked(ctx)
}

// DeleteGroup removes a group definition.
func (p *Pool) DeleteGroup(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	filtered := p.doc.Groups[:0]
	found := false
	for _, g := range p.doc.Groups {
		if g.GroupName == name {
			found = true
			continue
		}
		filtered = append(filtered, g)
	}
	if !found {
		return ErrNotFound
	}
	p.doc.Groups = filtered
	return p.persistLocked(ctx)
}

// AddUserToGroup adds username to the group's membership list, idempotent.
func (p *Pool) AddUserToGroup(ctx context.Context, groupName, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.findUserLocked(username) == nil {
		return ErrNotFound
	}
	for _, g := range p.doc.Groups {
		if g.GroupName == groupName {
			if !containsString(g.Usernames, username) {
				g.Usernames = append(g.Usernames, username)
				g.LastModifiedDate = time.Now().UTC()
			}
			return p.persistLocked(ctx)
		}
	}
	return ErrNotFound
}

// RemoveUserFromGroup removes username from the group's membership list.
func (p *Pool) RemoveUserFromGroup(ctx context.Context, groupName, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, g := range p.doc.Groups {
		if g.GroupName == groupName {
			g.Usernames = removeString(g.Usernames, username)
			g.LastModifiedDate = time.Now().UTC()
			return p.persistLocked(ctx)
		}
	}
	return ErrNotFound
}

// ListUserGroupMembership returns every group name username belongs to.
func (p *Pool) ListUserGroupMembership(username string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var names []string
	for _, g := range p.doc.Groups {
		if containsString(g.Usernames, username) {
			names = append(names, g.GroupName)
		}
	}
	return names
}

// ListGroupMembership returns every username belonging to groupName.
func (p *Pool) ListGroupMembership(groupName string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, g := range p.doc.Groups {
		if g.GroupName == groupName {
			out := make([]string, len(g.Usernames))
			copy(out, g.Usernames)
			return out
		}
	}
	return nil
}

// UserGroups returns every Group the user belongs to, for claim shaping in
// the token generator (cognito:groups).
func (p *Pool) UserGroups(username string) []*Group {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var groups []*Group
	for _, g := range p.doc.Groups {
		if containsString(g.Usernames, username) {
			groups = append(groups, g)
		}
	}
	return groups
}

// GetClient returns the app client by id.
func (p *Pool) GetClient(clientID string) (*AppClient, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.doc.Clients {
		if c.ClientId == clientID {
			return c, true
		}
	}
	return nil, false
}

// SaveClient upserts an app client definition.
func (p *Pool) SaveClient(ctx context.Context, c *AppClient) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.doc.Clients {
		if existing.ClientId == c.ClientId {
			p.doc.Clients[i] = c
			return p.persistLocked(ctx)
		}
	}
	p.doc.Clients = append(p.doc.Clients, c)
	return p.persistLocked(ctx)
}

// Clients returns every app client registered to the pool, used by the
// facade to build the reverse ClientId -> PoolId index.
func (p *Pool) Clients() []*AppClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*AppClient, len(p.doc.Clients))
	copy(out, p.doc.Clients)
	return out
}

func (p *Pool) persistLocked(ctx context.Context) error {
	data, err := marshalPool(p.doc)
	if err != nil {
		return err
	}
	return p.backend.Save(ctx, p.doc.Id, data)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	filtered := list[:0]
	for _, v := range list {
		if v != s {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
