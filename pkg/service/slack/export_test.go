package slack

import "github.com/secmon-lab/clacks/pkg/domain/interfaces"

// PendingUserPages returns the number of users.list pages awaiting continuation
func PendingUserPages(c interfaces.SlackClient) int {
	cl := c.(*client)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.userPages)
}
