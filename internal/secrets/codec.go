package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Префикс зашифрованного значения. Значение без префикса считается
// открытым текстом, значение с префиксом повторно не шифруется.
const cipherPrefix = "enc::v1::"

// Ошибки кодека.
var (
	// ErrNoKey — секретный ключ не задан.
	ErrNoKey = errors.New("secret key is not configured")

	// ErrEncrypt — шифрование не удалось. Запись отклоняется (fail-closed).
	ErrEncrypt = errors.New("encrypt failed")

	// ErrDecrypt — расшифровка не удалась.
	ErrDecrypt = errors.New("decrypt failed")
)

// Codec — симметричный кодек для чувствительных полей конфигурации узлов.
//
// Алгоритм: AES-256-CBC со случайным IV на каждый вызов.
// IV хранится вместе с шифротекстом, внешнего состояния для
// расшифровки не требуется. Ключ процессный, read-only после создания.
//
// Политика ошибок:
//   - Encrypt fail-closed: при ошибке шифрования значение не сохраняется.
//   - Decrypt fail-open: при ошибке возвращается значение как есть
//     (чужие/повреждённые данные не должны валить запуск), ошибка логируется.
type Codec struct {
	key    []byte // 32 байта, AES-256
	logger *slog.Logger
}

// NewCodec создаёт кодек с ключом, выведенным из secret.
// Ключ выводится через SHA-256, поэтому secret может быть любой длины.
func NewCodec(secret string, logger *slog.Logger) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	sum := sha256.Sum256([]byte(secret))
	return &Codec{key: sum[:], logger: logger}, nil
}

// NewCodecFromEnv создаёт кодек из переменной окружения FLOWLINE_SECRET_KEY.
func NewCodecFromEnv(logger *slog.Logger) (*Codec, error) {
	return NewCodec(os.Getenv("FLOWLINE_SECRET_KEY"), logger)
}

// Encrypt шифрует plaintext и возвращает значение с префиксом.
//
// Идемпотентно: значение, уже несущее префикс, возвращается без изменений.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if strings.HasPrefix(plaintext, cipherPrefix) {
		return plaintext, nil
	}
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	// IV + шифротекст в одном буфере
	buf := make([]byte, aes.BlockSize+len(padded))
	iv := buf[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: read iv: %v", ErrEncrypt, err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)

	return cipherPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt расшифровывает значение с префиксом.
//
// Значение без префикса возвращается без изменений (no-op).
// При ошибке расшифровки возвращается исходное значение, ошибка логируется —
// повреждённые данные не должны прерывать выполнение.
func (c *Codec) Decrypt(value string) string {
	if !strings.HasPrefix(value, cipherPrefix) {
		return value
	}

	plaintext, err := c.decrypt(value)
	if err != nil {
		c.logger.Warn("failed to decrypt value, returning as is", "error", err)
		return value
	}
	return plaintext
}

func (c *Codec) decrypt(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, cipherPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: decode base64: %v", ErrDecrypt, err)
	}

	if len(raw) < aes.BlockSize || (len(raw)-aes.BlockSize)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecrypt)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(plaintext), nil
}

// IsEncrypted проверяет, несёт ли значение префикс шифротекста.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, cipherPrefix)
}

// pkcs7Pad дополняет данные до кратности blockSize по PKCS#7.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

// pkcs7Unpad снимает PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding byte")
		}
	}
	return data[:len(data)-padLen], nil
}
