package database

// Backend names accepted by LEDGER_BACKEND.
const (
	BackendXLSX     = "xlsx"
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
)

// Gallery sources accepted by GALLERY_SOURCE.
const (
	GallerySourceFile     = "file"
	GallerySourcePostgres = "postgres"
)

// AttendanceTable is the table both SQL backends store records in.
const AttendanceTable = "attendance_records"
