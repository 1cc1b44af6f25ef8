package config

const (
	// TopicIndexSubmit carries extracted records (and retried failures) to the index consumer.
	TopicIndexSubmit = "natjus.index.submit"

	// ChannelIndexer is the consumer channel of the index worker.
	ChannelIndexer = "indexer"
)
