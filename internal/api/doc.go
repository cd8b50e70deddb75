// Package api is the optional REST surface over the Store Facade:
// node CRUD, hierarchy traversal, ANN/multimodal/hybrid search, image
// payloads, and the typed relationship graph, all behind a single gin
// router with API-key auth, CORS, and a body-size limit.
package api
