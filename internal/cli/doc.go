// Package cli реализует инструмент командной строки Flowline.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Flowline API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления workflow, активацией, test mode
// и просмотра запусков.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Flowline API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: flowline workflow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow:  list, create, show, delete, activate, deactivate,
//     active, test-mode start/stop/sessions
//   - execution: run, show, list
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
