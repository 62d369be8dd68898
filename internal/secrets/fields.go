package secrets

import "github.com/shaiso/Flowline/internal/domain"

// sensitiveFields — статическая таблица: тип узла → чувствительные поля
// конфигурации, подлежащие шифрованию на границе хранилища.
//
// Изменение набора полей для типа — это миграция данных, а не правка кода
// движка: движок лишь сверяется с таблицей.
var sensitiveFields = map[domain.NodeType][]string{
	domain.NodeTypeHTTP:  {"auth_token", "password"},
	domain.NodeTypeChat:  {"webhook_url", "token"},
	domain.NodeTypeEmail: {"api_key", "smtp_password"},
	domain.NodeTypeQueue: {"url"},
}

// SensitiveFields возвращает список чувствительных полей для типа узла.
// Для типов без записи возвращает nil — такие конфиги проходят нетронутыми.
func SensitiveFields(nodeType domain.NodeType) []string {
	return sensitiveFields[nodeType]
}

// EncryptNodeConfig шифрует чувствительные строковые поля конфига узла
// на месте. Применяется на границе хранилища перед записью.
//
// Fail-closed: первая же ошибка шифрования прерывает операцию,
// частично зашифрованный конфиг не сохраняется вызывающей стороной.
func (c *Codec) EncryptNodeConfig(node *domain.NodeInstance) error {
	for _, field := range SensitiveFields(node.Type) {
		raw, ok := node.Config[field]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}

		encrypted, err := c.Encrypt(value)
		if err != nil {
			return err
		}
		node.Config[field] = encrypted
	}
	return nil
}

// DecryptNodeConfig возвращает копию конфига узла с расшифрованными
// чувствительными полями. Исходный конфиг не мутируется — движок
// работает с runtime-копией, персистентный граф остаётся как есть.
func (c *Codec) DecryptNodeConfig(node *domain.NodeInstance) map[string]any {
	if node.Config == nil {
		return nil
	}

	decrypted := make(map[string]any, len(node.Config))
	for k, v := range node.Config {
		decrypted[k] = v
	}

	for _, field := range SensitiveFields(node.Type) {
		if value, ok := decrypted[field].(string); ok {
			decrypted[field] = c.Decrypt(value)
		}
	}

	return decrypted
}
