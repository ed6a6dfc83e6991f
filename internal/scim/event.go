// Package scim defines the directory-sync event envelope and the pieces of
// the SCIM user schema this service cares about.
package scim

// CoreUserSchema is the URN of the standard SCIM core user schema. Any
// other entry in a document's "schemas" list names a custom namespace.
const CoreUserSchema = "urn:ietf:params:scim:schemas:core:2.0:User"

// Directory-sync event kinds. Only user create/update carry a SCIM
// document we extract attributes from.
const (
	EventUserCreated  = "user.created"
	EventUserUpdated  = "user.updated"
	EventUserDeleted  = "user.deleted"
	EventGroupCreated = "group.created"
	EventGroupUpdated = "group.updated"
	EventGroupDeleted = "group.deleted"
)

// Event is one directory-sync webhook delivery.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData wraps the raw SCIM resource document. Raw is kept as a
// generic map because custom namespaces are by definition unknown ahead
// of time.
type EventData struct {
	Raw map[string]any `json:"raw"`
}

// SupportedEvent reports whether attribute extraction handles this kind.
func SupportedEvent(kind string) bool {
	return kind == EventUserCreated || kind == EventUserUpdated
}

// CoreUserFields lists the structural and identity fields of the SCIM
// core user object. These are never custom attributes, so the extractor
// drops them when collecting from the core namespace. Note that
// "nickName" is deliberately absent: some tenants provision it as
// organization metadata.
func CoreUserFields() []string {
	return []string{
		"id",
		"externalId",
		"userName",
		"name",
		"displayName",
		"title",
		"userType",
		"preferredLanguage",
		"locale",
		"timezone",
		"active",
		"password",
		"emails",
		"phoneNumbers",
		"ims",
		"photos",
		"addresses",
		"groups",
		"entitlements",
		"roles",
		"x509Certificates",
		"meta",
	}
}
