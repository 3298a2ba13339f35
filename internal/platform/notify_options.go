package platform

// AppName identifies the sender to the notification service.
const AppName = "mapforge"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath points to an image shown with the notification where supported.
	IconPath string
	// Urgent asks the notification service to keep the message visible.
	Urgent bool
}
