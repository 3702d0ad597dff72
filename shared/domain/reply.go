package domain

import "time"

type ReplyCreationData struct {
	Id             ReplyId
	ThreadId       ThreadId
	Text           Text
	DeletePassword Password
	CreatedOn      time.Time
}

type Reply struct {
	Id             ReplyId   `json:"_id"`
	Text           Text      `json:"text"`
	CreatedOn      time.Time `json:"created_on"`
	Reported       bool      `json:"reported"`
	DeletePassword Password  `json:"delete_password"`
}

func NewReply(data ReplyCreationData) Reply {
	return Reply{
		Id:             data.Id,
		Text:           data.Text,
		CreatedOn:      data.CreatedOn,
		DeletePassword: data.DeletePassword,
	}
}
