package domain

// Role 来自外部认证服务签发的令牌
type Role string

const (
	RoleProvider   Role = "provider"   // 服务商，只能预占、确认和取消预约
	RoleDispatcher Role = "dispatcher" // 调度员，额外可以手动过期预占
	RoleAdmin      Role = "admin"      // 管理员，可以维护班次和日历配置
)
