package dynamo

// DynamoDB attribute names used in update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldRefreshToken = "refresh_token"
	fieldUpdatedAt    = "updated_at"
)
