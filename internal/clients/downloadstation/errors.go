package downloadstation

const (
	categoryInfo = "info"
	categoryAuth = "auth"
	categoryTask = "task"
)

const unknownErrorDescription = "Unknown error"

var commonErrorCodes = map[int]string{
	100: "Unknown error",
	101: "Invalid parameter",
	102: "The requested API does not exist",
	103: "The requested method does not exist",
	104: "The requested version does not support the functionality",
	105: "The logged in session does not have permission",
	106: "Session timeout",
	107: "Session interrupted by duplicate login",
}

var authErrorCodes = map[int]string{
	400: "No such account or incorrect password",
	401: "Account disabled",
	402: "Permission denied",
	403: "2-step verification code required",
	404: "Failed to authenticate 2-step verification code",
}

var taskErrorCodes = map[int]string{
	400: "File upload failed",
	401: "Max number of tasks reached",
	402: "Destination denied",
	403: "Destination does not exist",
	404: "Invalid task id",
	405: "Invalid task action",
	406: "No default destination",
	407: "Set destination failed",
	408: "File does not exist",
}

// describeError resolves a response code: the common table first, then the
// table of the call category.
func describeError(category string, code int) string {
	if desc, ok := commonErrorCodes[code]; ok {
		return desc
	}
	var table map[int]string
	switch category {
	case categoryAuth:
		table = authErrorCodes
	case categoryTask:
		table = taskErrorCodes
	}
	if desc, ok := table[code]; ok {
		return desc
	}
	return unknownErrorDescription
}

// sessionExpired reports codes after which a fresh login may succeed.
func sessionExpired(code int) bool {
	return code == 106 || code == 107
}
