// Command recwatch watches Age of Empires II: Definitive Edition save
// folders and hands each finished replay to a parse service exactly once.
//
// `recwatch run` is the foreground daemon; the remaining subcommands inspect
// and maintain its state (processed records, dispatch history, config).
package main
