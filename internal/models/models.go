package models

import "time"

// Site is a directory entry linking to an external URL.
// Status is "pending" until an admin approves it; Live reflects the last
// probe result and stays NULL until the first check runs.
type Site struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	URL          string     `db:"url"`
	LogoURL      *string    `db:"logo_url"`
	LightLogoURL *string    `db:"light_logo_url"`
	DarkLogoURL  *string    `db:"dark_logo_url"`
	Categories   []byte     `db:"categories"`
	Tags         []byte     `db:"tags"`
	Status       string     `db:"status"`
	Live         *string    `db:"live"`
	LastChecked  *time.Time `db:"last_checked"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type ServerMetricSample struct {
	ID                string    `db:"id"`
	CapturedAt        time.Time `db:"captured_at"`
	ProcessRSSBytes   int64     `db:"process_rss_bytes"`
	SystemMemoryTotal int64     `db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `db:"disk_total_bytes"`
	DiskUsedBytes     int64     `db:"disk_used_bytes"`
	ProcessCpuLoad    float64   `db:"process_cpu_load"`
	SystemCpuLoad     float64   `db:"system_cpu_load"`
}

type SiteVisit struct {
	ID        string    `db:"id"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
	Path      *string   `db:"path"`
	Referrer  *string   `db:"referrer"`
	CreatedAt time.Time `db:"created_at"`
}
