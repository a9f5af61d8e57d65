package models

import "time"

type User struct {
	ID       int64  `json:"id,string,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username"`
	Picture  string `json:"picture"`
	Password []byte `json:"-"`
}

type Server struct {
	ID               int64  `json:"id,string"`
	OwnerID          int64  `json:"ownerID,string"`
	Name             string `json:"name"`
	IconID           string `json:"iconID,omitempty"`
	IconURL          string `json:"iconUrl,omitempty"`
	DefaultChannelID int64  `json:"defaultChannelID,string"`
}

type Channel struct {
	ID       int64  `json:"id,string"`
	ServerID int64  `json:"serverID,string"`
	Name     string `json:"name"`
}

type DirectConversation struct {
	ID int64 `json:"id,string"`
}

// ConversationKind discriminates the two conversation shapes a message can
// target. The kind is fixed when the conversation row is created, never
// inferred from the shape of a loaded record.
type ConversationKind byte

const (
	KindChannel ConversationKind = iota
	KindDirect
)

// Conversation is the resolved form of a message target: a channel carries
// the server it belongs to, a direct conversation does not.
type Conversation struct {
	ID       int64
	Kind     ConversationKind
	ServerID int64
}

type Message struct {
	ID             int64     `json:"id,string"`
	ConversationID int64     `json:"conversationID,string"`
	SenderID       int64     `json:"senderID,string"`
	Content        string    `json:"content"`
	Attachments    []string  `json:"attachments"`
	AttachmentURLs []*string `json:"attachmentUrls,omitempty"`
	Edited         bool      `json:"edited"`
	Deleted        bool      `json:"deleted"`
	DeletedReason  string    `json:"deletedReason,omitempty"`
	CreationTime   time.Time `json:"creationTime"`
	Sender         *User     `json:"sender,omitempty"`
}

type ConfigFile struct {
	Address           string
	Port              string
	BehindNginx       bool
	TlsCert           string
	TlsKey            string
	PrintHttpRequests bool
	JwtSecret         string
	SnowflakeWorkerID int64
	SelfContained     bool
	DbUser            string
	DbPassword        string
	DbAddress         string
	DbPort            string
	DbDatabase        string
	RedisAddress      string
	RedisPassword     string
	ModerationUrl     string
	ModerationApiKey  string
	ModerationModel   string
	AttachmentDir     string
	CdnBaseUrl        string
}
