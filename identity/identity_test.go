package identity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func Test_Extract(t *testing.T) {
	testCases := []struct {
		name      string
		opts      []Option
		claims    map[string]any
		wantUser  string
		wantEmail string
		wantRoles []string
	}{
		{
			name:      "it splits preferred_username at the first @",
			claims:    map[string]any{"preferred_username": "john.doe@example.com"},
			wantUser:  "john.doe",
			wantEmail: "john.doe@example.com",
			wantRoles: []string{},
		},
		{
			name:      "it keeps the whole value when there is no @",
			claims:    map[string]any{"preferred_username": "svc-account"},
			wantUser:  "svc-account",
			wantEmail: "svc-account",
			wantRoles: []string{},
		},
		{
			name:      "it only splits on the first @",
			claims:    map[string]any{"preferred_username": "a@b@c"},
			wantUser:  "a",
			wantEmail: "a@b@c",
			wantRoles: []string{},
		},
		{
			name:      "it treats a missing or non-string preferred_username permissively",
			claims:    map[string]any{"preferred_username": 42},
			wantRoles: []string{},
		},
		{
			name:      "it gives client-credentials callers the app identity",
			opts:      []Option{WithRoleFilter(ForApplication("inventory"))},
			claims:    map[string]any{"appid": "daemon", "roles": []any{"inventory.read"}},
			wantUser:  DefaultAppUsername,
			wantRoles: []string{DefaultAppRole},
		},
		{
			name:      "it uses configured app defaults",
			opts:      []Option{WithAppDefaults("batch", "BatchRole")},
			claims:    map[string]any{"appid": "daemon"},
			wantUser:  "batch",
			wantRoles: []string{"BatchRole"},
		},
		{
			name:      "a upn claim marks a user token",
			claims:    map[string]any{"upn": "john.doe@example.com"},
			wantRoles: []string{},
		},
		{
			name: "it surfaces every role without a filter",
			claims: map[string]any{
				"preferred_username": "jane@example.com",
				"roles":              []any{"inventory.read", "billing.admin", 7, "inventory.read"},
			},
			wantUser:  "jane",
			wantEmail: "jane@example.com",
			wantRoles: []string{"inventory.read", "billing.admin"},
		},
		{
			name: "it filters roles by application",
			opts: []Option{WithRoleFilter(ForApplication("inventory"))},
			claims: map[string]any{
				"preferred_username": "jane@example.com",
				"roles":              []any{"inventory.read", "billing.admin", "Inventory:write", "inventoryx.read"},
			},
			wantUser:  "jane",
			wantEmail: "jane@example.com",
			wantRoles: []string{"inventory.read", "Inventory:write"},
		},
		{
			name: "it reads a custom roles claim",
			opts: []Option{WithRolesClaim("groups")},
			claims: map[string]any{
				"preferred_username": "jane@example.com",
				"groups":             []string{"g1", "g2"},
				"roles":              []any{"ignored"},
			},
			wantUser:  "jane",
			wantEmail: "jane@example.com",
			wantRoles: []string{"g1", "g2"},
		},
		{
			name: "it accepts a single string role",
			claims: map[string]any{
				"preferred_username": "jane@example.com",
				"roles":              "admin",
			},
			wantUser:  "jane",
			wantEmail: "jane@example.com",
			wantRoles: []string{"admin"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			id := NewExtractor(testCase.opts...).Extract(testCase.claims)

			assert.Equal(t, testCase.wantUser, id.Username)
			assert.Equal(t, testCase.wantEmail, id.Email)
			if diff := cmp.Diff(testCase.wantRoles, id.Roles); diff != "" {
				t.Errorf("roles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_IsClientCredentials(t *testing.T) {
	assert.True(t, IsClientCredentials(map[string]any{"appid": "daemon"}))
	assert.False(t, IsClientCredentials(map[string]any{"upn": "a@b.c"}))
	assert.False(t, IsClientCredentials(map[string]any{"preferred_username": ""}))

	id := NewExtractor().Extract(map[string]any{"sub": "s"})
	assert.True(t, id.ClientCredentials)
	assert.Empty(t, id.Email)
}

func Test_Identity_SetAttribute(t *testing.T) {
	id := &Identity{}
	id.SetAttribute("azure_company", "Contoso")
	id.SetAttribute("azure_department", nil)

	assert.Equal(t, map[string]any{"azure_company": "Contoso", "azure_department": nil}, id.Attributes)
}

func Test_Extract_IsIdempotent(t *testing.T) {
	claims := map[string]any{
		"preferred_username": "john.doe@example.com",
		"roles":              []any{"api.read", "api.write"},
	}
	e := NewExtractor(WithRoleFilter(ForApplication("api")))

	first := e.Extract(claims)
	second := e.Extract(claims)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identity changed between extractions (-first +second):\n%s", diff)
	}
	assert.Equal(t, []any{"api.read", "api.write"}, claims["roles"], "claims must not be mutated")
}

func Test_RoleFilter(t *testing.T) {
	testCases := []struct {
		name    string
		filter  RoleFilter
		entries []string
		want    []string
	}{
		{
			name:    "empty filter keeps everything",
			entries: []string{"a", "b"},
			want:    []string{"a", "b"},
		},
		{
			name:    "application prefix with separators",
			filter:  ForApplication("orders"),
			entries: []string{"orders.read", "orders:write", "orders/admin", "orders", "ordersx", "billing.read"},
			want:    []string{"orders.read", "orders:write", "orders/admin", "orders"},
		},
		{
			name:    "application as an inner segment",
			filter:  ForApplication("orders"),
			entries: []string{"corp.orders.read", "corp.billing.read"},
			want:    []string{"corp.orders.read"},
		},
		{
			name:    "application and role pair",
			filter:  RoleFilter{{Application: "orders", Role: "write"}},
			entries: []string{"orders.read", "orders.write", "corp.orders.write"},
			want:    []string{"orders.write", "corp.orders.write"},
		},
		{
			name:    "role without application matches exactly",
			filter:  RoleFilter{{Role: "admin"}},
			entries: []string{"admin", "orders.admin"},
			want:    []string{"admin"},
		},
		{
			name:    "several rules are ORed",
			filter:  RoleFilter{{Application: "orders"}, {Application: "billing", Role: "read"}},
			entries: []string{"orders.read", "billing.read", "billing.write"},
			want:    []string{"orders.read", "billing.read"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := testCase.filter.Apply(testCase.entries)
			if diff := cmp.Diff(testCase.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_HasRole(t *testing.T) {
	id := &Identity{Roles: []string{"orders.read"}}
	assert.True(t, id.HasRole("orders.read"))
	assert.False(t, id.HasRole("orders.write"))

	var nilID *Identity
	assert.False(t, nilID.HasRole("orders.read"))
}
