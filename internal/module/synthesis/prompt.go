package synthesis

import (
	"fmt"
	"strings"
)

// BuildInstruction builds the natural-language editing instruction sent to
// the provider together with the photo.
func BuildInstruction(styleName, roomDescription string) string {
	roomContext := strings.TrimSpace(roomDescription)
	if roomContext == "" {
		roomContext = "a room"
	}

	return fmt.Sprintf(
		"This is a photo of %s. Redecorate it in the %s style. "+
			"Keep the structure of the room exactly as it is: do not move or resize walls, "+
			"windows, doors, or change the layout. "+
			"Change the furniture, wall color, flooring, and decor to match the %s style. "+
			"Return the redecorated photo.",
		roomContext, styleName, styleName,
	)
}
