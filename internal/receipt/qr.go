// Package receipt renders completed orders as encrypted QR codes that a
// course platform can scan to verify a purchase.
package receipt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-marketplace/internal/models"

	"github.com/skip2/go-qrcode"
)

// QRSize is the side length of generated PNGs in pixels.
const QRSize = 256

var ErrNotCompleted = errors.New("order is not completed")

// Payload is what the QR code carries once decrypted.
type Payload struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	CourseIDs []string  `json:"course_ids"`
	Total     float64   `json:"total"`
	IssuedAt  time.Time `json:"issued_at"`
}

type QRGenerator struct {
	secret []byte
	now    func() time.Time
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:], now: time.Now}
}

// Token returns the encrypted, URL safe payload for a completed order.
func (q *QRGenerator) Token(order models.Order) (string, error) {
	if order.Status != models.OrderCompleted {
		return "", ErrNotCompleted
	}

	data, err := json.Marshal(Payload{
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		CourseIDs: order.CourseIDs,
		Total:     order.Price,
		IssuedAt:  q.now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// PNG renders the receipt token of a completed order.
func (q *QRGenerator) PNG(order models.Order) ([]byte, error) {
	token, err := q.Token(order)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, QRSize)
}

// Decode reverses Token.
func (q *QRGenerator) Decode(token string) (*Payload, error) {
	data, err := decryptAES(token, q.secret)
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &p, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(token string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("receipt token too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv, body := ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plain, body)
	return plain, nil
}
