package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	GuestCookieName = "guest_id"
	GuestHeaderName = "X-Guest-ID"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
