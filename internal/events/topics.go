package events

// TopicCartUpdated is broadcast after every cart store write.
const TopicCartUpdated = "cartUpdated"
