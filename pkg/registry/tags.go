package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// ErrMalformedTagsList indicates a tags/list response that is not a JSON tag list.
var ErrMalformedTagsList = errors.New("malformed tags list")

// FetchTags retrieves and decodes the tag list at url. A missing or null tags array decodes to
// an empty list.
func (c *Client) FetchTags(ctx context.Context, url string) (types.TagsList, error) {
	res, err := c.Fetch(ctx, url)
	if err != nil {
		return types.TagsList{}, err
	}

	list := types.TagsList{}
	if err := json.Unmarshal(res.Body, &list); err != nil {
		return types.TagsList{}, fmt.Errorf("%w: %w", ErrMalformedTagsList, err)
	}

	if list.Tags == nil {
		list.Tags = []string{}
	}

	logrus.WithFields(logrus.Fields{
		"url":  url,
		"name": list.Name,
		"tags": len(list.Tags),
	}).Debug("Fetched tag list")

	return list, nil
}
