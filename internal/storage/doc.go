// Package storage persists the bot's durable state in sqlite: the last seen
// schedule per (group, slot) and the subscriber roster with per-user send
// timestamps. Everything else in the process is reconstructible from a fresh
// scrape, so this is the only state that must survive a restart.
package storage
