// Package logx wraps zerolog behind a small structured logging facade.
//
// Components receive a Logger (usually derived via With(logx.String("comp",
// ...))) and never touch zerolog directly. The Service owns the sinks:
//   - Console (human-friendly writer)
//   - File (JSON lines)
//   - Telegram (operator chat, rate limited, warnings and up by default)
//
// Sinks and levels can be swapped at runtime through Apply(), which the
// config reload path uses; Loggers handed out earlier keep working.
package logx
