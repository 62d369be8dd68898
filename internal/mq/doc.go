// Package mq инкапсулирует работу с RabbitMQ.
//
// Две роли:
//   - Publisher — queue-узлы workflow публикуют сообщения наружу;
//   - TriggerConsumer — входящие сообщения очереди triggers.incoming
//     запускают workflows (messaging-аналог webhook-триггера).
//
// Connection автоматически переподключается при разрыве; consumers
// перезапускаются по уведомлению ReconnectNotify.
package mq
