package container

import "fmt"

// Workload container names follow the provisioning scheme
// tenant-<id>-<role>.
func WebWorkload(tenantID uint) string {
	return fmt.Sprintf("tenant-%d-web", tenantID)
}

func DBWorkload(tenantID uint) string {
	return fmt.Sprintf("tenant-%d-db", tenantID)
}

func RedisWorkload(tenantID uint) string {
	return fmt.Sprintf("tenant-%d-redis", tenantID)
}
