package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Client is a minimal Telegram Bot API client covering what the physician
// notification path needs.
type Client struct {
	Token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token:   token,
		baseURL: "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendMessageReq struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (c *Client) SendMessage(chatID int64, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.Token)

	// Plain text on purpose; Markdown parse mode chokes on medical terms
	// containing underscores.
	jsonBody, err := json.Marshal(sendMessageReq{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(url, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// SendDocument uploads a file to a chat via multipart form data.
func (c *Client) SendDocument(chatID int64, fileData []byte, fileName string) error {
	url := fmt.Sprintf("%s/bot%s/sendDocument", c.baseURL, c.Token)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(fileData); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := c.httpClient.Post(url, writer.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("send telegram document: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var bodyBytes []byte
	if resp.Body != nil {
		bodyBytes, _ = io.ReadAll(resp.Body)
	}
	return fmt.Errorf("telegram api returned status %s: %s", resp.Status, string(bodyBytes))
}
