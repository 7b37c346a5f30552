package dto

// CallbackAck is the WeChat-style webhook acknowledgement body.
type CallbackAck struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckSuccess acknowledges a processed webhook.
func AckSuccess() CallbackAck {
	return CallbackAck{Code: "SUCCESS", Message: "OK"}
}

// AckFail tells the provider to redeliver.
func AckFail(message string) CallbackAck {
	return CallbackAck{Code: "FAIL", Message: message}
}
