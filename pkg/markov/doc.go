/*
Package markov builds a variable-order, word-level Markov model from a single
literary corpus and generates pseudo-random sentences from it.

A Model is built once by a load phase (tokenize, rank the vocabulary, slide a
context window over the token stream) and is read-only afterwards, so one
*Model can serve any number of concurrent Generate calls. Each call draws from
its own random source unless one is injected with WithRand or WithSeed.

Built models can be cached in SQLite with a Store, keyed by a fingerprint of
the corpus and the load configuration.
*/
package markov
