package domain

type MessageStatus string

const (
	MessageStatusSending MessageStatus = "SENDING"
	MessageStatusSent    MessageStatus = "SENT"
	MessageStatusRead    MessageStatus = "READ"
	MessageStatusFailed  MessageStatus = "FAILED"
)

type Sender string

const (
	SenderAdmin    Sender = "ADMIN"
	SenderCustomer Sender = "CUSTOMER"
)
