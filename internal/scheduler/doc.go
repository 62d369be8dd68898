// Package scheduler управляет периодическими запусками workflow.
//
// Активация регистрирует отдельную cron-задачу workflow; реестр задач
// живёт в памяти, активность персистится флагом в хранилище и
// восстанавливается при старте процесса через Initialize.
//
// Test mode — временная сессия периодических запусков с потолком тиков
// и сроком жизни; сессия разбирается ровно один раз, какой бы предел
// ни сработал первым.
//
// Структура:
//   - scheduler.go — реестр задач и сессий, активация, test mode
//   - cron.go      — парсеры cron-выражений и перечисление интервалов
package scheduler
