// Package secrets реализует шифрование чувствительных полей
// конфигурации узлов.
//
// Кодек применяется в двух местах:
//   - на границе хранилища: EncryptNodeConfig перед записью workflow;
//   - внутри движка: DecryptNodeConfig непосредственно перед диспатчем узла.
//
// Персистентный граф всегда содержит шифротекст; расшифрованная копия
// живёт только в памяти одного запуска.
package secrets
