package utils

//run redis (optional, sessions fall back to memory)
//docker run -p 6379:6379 -d redis

//run qdrant (only with retrieval.vector_backend: qdrant)
//docker run -p 6333:6333 -p 6334:6334 qdrant/qdrant

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
