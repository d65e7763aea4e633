// Package store implements the user pool domain store: the per-pool
// aggregate of users, groups, and app clients, and the persistence
// interface it is written through.
package store

import "time"

// Attribute is a single {Name, Value} pair carried on a user record. Value
// is always a string on the wire, including booleans ("true"/"false"),
// which preserves round-trip compatibility with the JSON wire protocol; a
// derived map is built for fast lookup but this ordered list remains the
// canonical form.
type Attribute struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// UserStatus enumerates the lifecycle states of a User.
type UserStatus string

const (
	StatusUnconfirmed        UserStatus = "UNCONFIRMED"
	StatusConfirmed          UserStatus = "CONFIRMED"
	StatusArchived           UserStatus = "ARCHIVED"
	StatusCompromised        UserStatus = "COMPROMISED"
	StatusUnknown            UserStatus = "UNKNOWN"
	StatusResetRequired      UserStatus = "RESET_REQUIRED"
	StatusForceChangePwd     UserStatus = "FORCE_CHANGE_PASSWORD"
	StatusExternalProvider   UserStatus = "EXTERNAL_PROVIDER"
)

// MFAOption records a delivery medium bound to an attribute (e.g. SMS to
// phone_number) offered as an MFA factor.
type MFAOption struct {
	DeliveryMedium string `json:"DeliveryMedium"`
	AttributeName  string `json:"AttributeName"`
}

// User is keyed within its owning pool by Username, case-preserving but
// looked up case-insensitively by the pool's index.
type User struct {
	Username   string      `json:"Username"`
	Sub        string      `json:"Sub"`
	Attributes []Attribute `json:"Attributes"`

	Password string `json:"Password"`

	UserStatus UserStatus `json:"UserStatus"`
	Enabled    bool       `json:"Enabled"`

	ConfirmationCode string `json:"ConfirmationCode,omitempty"`
	MFACode          string `json:"MFACode,omitempty"`

	MFAOptions          []MFAOption `json:"MFAOptions,omitempty"`
	UserMFASettingList  []string    `json:"UserMFASettingList,omitempty"`
	PreferredMfaSetting string      `json:"PreferredMfaSetting,omitempty"`

	RefreshTokens []string `json:"RefreshTokens,omitempty"`

	CreateDate       time.Time `json:"CreateDate"`
	LastModifiedDate time.Time `json:"LastModifiedDate"`
}

// AttributeMap returns the derived name->value view of the user's
// attributes. The Attributes slice remains the canonical, persisted form.
func (u *User) AttributeMap() map[string]string {
	m := make(map[string]string, len(u.Attributes))
	for _, a := range u.Attributes {
		m[a.Name] = a.Value
	}
	return m
}

// SetAttribute upserts a {Name, Value} pair, preserving list ordering for
// existing names.
func (u *User) SetAttribute(name, value string) {
	for i := range u.Attributes {
		if u.Attributes[i].Name == name {
			u.Attributes[i].Value = value
			return
		}
	}
	u.Attributes = append(u.Attributes, Attribute{Name: name, Value: value})
}

// Attribute returns the value bound to name and whether it was present.
func (u *User) Attribute(name string) (string, bool) {
	for _, a := range u.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasRefreshToken reports whether token is currently bound to the user.
func (u *User) HasRefreshToken(token string) bool {
	for _, t := range u.RefreshTokens {
		if t == token {
			return true
		}
	}
	return false
}

// Group is unique by GroupName within its pool.
type Group struct {
	GroupName        string    `json:"GroupName"`
	Description      string    `json:"Description,omitempty"`
	RoleArn          string    `json:"RoleArn,omitempty"`
	Precedence       *int32    `json:"Precedence,omitempty"`
	Usernames        []string  `json:"Usernames,omitempty"`
	CreationDate     time.Time `json:"CreationDate"`
	LastModifiedDate time.Time `json:"LastModifiedDate"`
}

// AppClient is a registered consumer of a pool, unique globally by
// ClientId.
type AppClient struct {
	ClientId     string `json:"ClientId"`
	ClientName   string `json:"ClientName"`
	UserPoolId   string `json:"UserPoolId"`
	ClientSecret string `json:"ClientSecret,omitempty"`

	ExplicitAuthFlows []string `json:"ExplicitAuthFlows,omitempty"`

	AccessTokenValidity  time.Duration `json:"AccessTokenValidity,omitempty"`
	IdTokenValidity      time.Duration `json:"IdTokenValidity,omitempty"`
	RefreshTokenValidity time.Duration `json:"RefreshTokenValidity,omitempty"`

	ReadAttributes  []string `json:"ReadAttributes,omitempty"`
	WriteAttributes []string `json:"WriteAttributes,omitempty"`
}

// SupportsFlow reports whether authFlow is allowed for this client. An
// empty ExplicitAuthFlows list allows every flow, matching the upstream
// default of "no restriction configured".
func (c *AppClient) SupportsFlow(authFlow string) bool {
	if len(c.ExplicitAuthFlows) == 0 {
		return true
	}
	for _, f := range c.ExplicitAuthFlows {
		if f == authFlow {
			return true
		}
	}
	return false
}

// MFAConfiguration is the pool-wide MFA requirement level.
type MFAConfiguration string

const (
	MFAOff      MFAConfiguration = "OFF"
	MFAOptional MFAConfiguration = "OPTIONAL"
	MFAOn       MFAConfiguration = "ON"
)

// PasswordPolicy is the pool's minimum password strength requirement.
type PasswordPolicy struct {
	MinimumLength    int  `json:"MinimumLength"`
	RequireUppercase bool `json:"RequireUppercase"`
	RequireLowercase bool `json:"RequireLowercase"`
	RequireNumbers   bool `json:"RequireNumbers"`
	RequireSymbols   bool `json:"RequireSymbols"`
}

// SchemaAttribute describes one entry in the pool's attribute schema.
type SchemaAttribute struct {
	Name       string `json:"Name"`
	Type       string `json:"AttributeDataType"`
	Mutable    bool   `json:"Mutable"`
	Required   bool   `json:"Required"`
}

// LambdaConfig binds trigger names to opaque handler identifiers. It is
// stored with the pool document and not interpreted by the store or by the
// Engine; the Engine's trigger handlers are bound through Builder.WithTrigger.
type LambdaConfig map[string]string

// UserPool is the aggregate root: it owns every user, group, and client
// table for the pool and is the sole unit of concurrency control (see
// Pool.mu). No back-pointer to the pool is stored on User, Group, or
// AppClient; membership is expressed by the pool's own tables and rebuilt
// on load, never persisted as a separate index.
type UserPool struct {
	Id          string `json:"Id"`
	Name        string `json:"Name"`
	IssuerURL   string `json:"IssuerURL"`

	MFAConfiguration MFAConfiguration `json:"MFAConfiguration"`
	PasswordPolicy   PasswordPolicy   `json:"PasswordPolicy"`

	AutoVerifiedAttributes []string          `json:"AutoVerifiedAttributes,omitempty"`
	Schema                 []SchemaAttribute `json:"Schema,omitempty"`
	LambdaConfig           LambdaConfig      `json:"LambdaConfig,omitempty"`

	AccessTokenValidity  time.Duration `json:"AccessTokenValidity"`
	IdTokenValidity      time.Duration `json:"IdTokenValidity"`
	RefreshTokenValidity time.Duration `json:"RefreshTokenValidity"`

	Users   []*User      `json:"Users"`
	Groups  []*Group     `json:"Groups"`
	Clients []*AppClient `json:"Clients"`

	CreationDate time.Time `json:"CreationDate"`
}
