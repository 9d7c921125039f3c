// Package query отвечает на вопрос "что due в этом окне".
//
// Тонкая читающая прослойка над store: используется window-endpoint'ом
// API. Безопасна конкурентно со scan и вставками — видит некоторое
// недавнее консистентное состояние store.
package query
