package util

const (
	DateFormat  = "2006-01-02"
	MonthFormat = "2006-01"
	ClockFormat = "15:04"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 设备标识，未登录时作为本地缓存的 key
const (
	DeviceHeader = "X-Device-ID"
	DeviceCookie = "device_id"
)
