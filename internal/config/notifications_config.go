package config

type NotificationsConfig interface {
	GetNotificationsDatabaseURL() string
	GetNotificationsTable() string
	GetNotificationsChannel() string
	GetNotificationsPageSize() int
}

type Notifications struct {
	file *fileConfig
}

var _ NotificationsConfig = Notifications{}

func (n Notifications) GetNotificationsDatabaseURL() string {
	return lookup("IMAGEN_NOTIFICATIONS_DATABASE_URL", n.file.Notifications.DatabaseURL, "")
}

func (n Notifications) GetNotificationsTable() string {
	return lookup("IMAGEN_NOTIFICATIONS_TABLE", n.file.Notifications.Table, "notifications")
}

func (n Notifications) GetNotificationsChannel() string {
	return lookup("IMAGEN_NOTIFICATIONS_CHANNEL", n.file.Notifications.Channel, "notifications_changes")
}

func (n Notifications) GetNotificationsPageSize() int {
	return lookupInt("IMAGEN_NOTIFICATIONS_PAGE_SIZE", n.file.Notifications.PageSize, 50)
}
