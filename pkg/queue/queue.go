package queue

// Queue represents a basic queue.
// Implementations must be safe for concurrent use.
type Queue interface {
	// Enqueue adds an item to the end of the queue.
	Enqueue(item interface{}) error
	// Dequeue removes and returns the item at the front of the queue.
	Dequeue() (interface{}, error)
	// Size returns the number of pending items.
	Size() int
	// ReadAllMessages removes and returns every pending item.
	ReadAllMessages() ([]interface{}, error)
	// ClearQueue drops every pending item.
	ClearQueue() error
}
