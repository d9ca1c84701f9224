package models

// Profile defines the structure for user profiles. Identity and profile
// editing are owned by external flows; the matchmaker only touches the
// searching attributes and the active-match guard.
type Profile struct {
	UserID    string   `dynamodbav:"userId" json:"userId"` // ✅ Partition Key (auth-provider UUID)
	FullName  string   `dynamodbav:"fullName,omitempty" json:"fullName,omitempty"`
	AvatarURL string   `dynamodbav:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Bio       string   `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	Interests []string `dynamodbav:"interests,omitempty" json:"interests,omitempty"`

	// SearchStatus is a sparse attribute: present (value "searching") only
	// while the user waits to be paired. It is the partition key of the
	// sparse GSI, so users who are not searching never appear in the index.
	SearchStatus   string `dynamodbav:"searchStatus,omitempty" json:"-"`
	SearchingSince string `dynamodbav:"searchingSince,omitempty" json:"-"` // RFC3339, GSI sort key

	// ActiveMatchID is present only while the user is in a non-terminal
	// match. Pairing claims it with attribute_not_exists, which is what
	// keeps a user out of two simultaneous active matches.
	ActiveMatchID string `dynamodbav:"activeMatchId,omitempty" json:"activeMatchId,omitempty"`

	PushToken string `dynamodbav:"pushToken,omitempty" json:"-"` // Expo push address, optional
}

// ProfilesTable is the DynamoDB table name for user profiles
const ProfilesTable = "Profiles"

// SearchStatusIndex is the sparse GSI over waiting users (PK: searchStatus, SK: searchingSince)
const SearchStatusIndex = "search-status-index"

// SearchStatusSearching is the single value SearchStatus ever holds.
const SearchStatusSearching = "searching"

// IsSearching reports whether the user is currently waiting to be paired.
func (p *Profile) IsSearching() bool {
	return p.SearchStatus == SearchStatusSearching
}

// Public returns the reveal payload: the fields exposed to the counterpart
// once a match reaches revealed.
func (p *Profile) Public() *Profile {
	return &Profile{
		UserID:    p.UserID,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		Interests: p.Interests,
	}
}
