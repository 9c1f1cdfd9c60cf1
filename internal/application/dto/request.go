// Package dto contains data transfer objects for application layer use cases.
package dto

// EditProfileRequest describes changes to the agent configuration of a
// stored profile. Entries are added, or removed when Delete is set.
type EditProfileRequest struct {
	Version   string
	ProfileID string

	// Features are references in "name" or "name/version" form.
	Features     []string
	Repositories []string
	Bundles      []string

	// Attributes are set as "attribute.<key>"; with Delete only the keys
	// matter.
	Attributes map[string]string

	// Parents replaces the parent list when non-nil. Ignored with Delete.
	Parents []string

	Delete   bool
	Metadata RequestMetadata
}

// ListProfilesRequest selects the profiles to list.
type ListProfilesRequest struct {
	Version       string
	IncludeHidden bool
}

// RequestMetadata contains metadata for request tracking.
type RequestMetadata struct {
	// RequestID uniquely identifies this request
	RequestID string
}
