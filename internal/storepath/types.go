package storepath

// Record describes one immutable store object as it appears in an input
// listing.
type Record struct {
	// Path is the full or canonical identifier of the object.
	Path string `json:"path"`

	// References lists the objects this object directly depends on.
	// Entries may use either identifier form, may include Path itself,
	// and may name objects absent from the listing.
	References []string `json:"references"`

	// RegistrationTime is when the object entered the store (epoch seconds).
	RegistrationTime int64 `json:"registrationTime"`

	// DownloadSize is the compressed archive size in bytes.
	DownloadSize int64 `json:"downloadSize,omitempty"`

	// URL identifies the origin the archive was fetched from.
	// Several records may share one URL.
	URL string `json:"url,omitempty"`
}
