// Package cardseer provides an embedded client for the cardseer retrieval
// core: card and rules lookup over an in-process HNSW index, plus fuzzy
// card-mention annotation.
//
// The client builds its indexes from the same Scryfall dump and rules file
// the API server uses, so a bot can run retrieval in-process without the
// HTTP layer:
//
//	client, _ := cardseer.New(cardseer.WithEmbedder(emb))
//	_ = client.LoadCards(ctx, "data/cards.json")
//	_ = client.LoadRules(ctx, "data/rules.json")
//
//	hits, _ := client.GetCards(ctx, "cheap red burn spell", cardseer.WithK(3))
//	note, _ := client.Annotate(ctx, "Chatterfang wins games.", cardseer.RoleUser)
//
// Pointing the client at a Valkey or Redis instance enables the shared
// embedding cache, so repeated texts skip the provider round trip.
package cardseer
