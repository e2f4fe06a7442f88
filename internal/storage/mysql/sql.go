package mysql

// -----------------------------------------------------------------------------
// PROPERTIES
// -----------------------------------------------------------------------------

// Property name is the owning account's display name.
const listPropertiesSQL = `
SELECT p.id, p.account_id, a.display_name, p.description, p.city, p.country, p.lat, p.lng, p.rating
FROM properties p
JOIN accounts a ON a.id = p.account_id
ORDER BY p.id
`

const getPropertySQL = `
SELECT p.id, p.account_id, a.display_name, p.description, p.city, p.country, p.lat, p.lng, p.rating
FROM properties p
JOIN accounts a ON a.id = p.account_id
WHERE p.id = ?
`

const getHostProfileSQL = `
SELECT property_id, name, bio, superhost, rating
FROM host_profiles
WHERE property_id = ?
`

// -----------------------------------------------------------------------------
// ROOMS & PRICING
// -----------------------------------------------------------------------------

const roomColumns = `id, property_id, name, type, description, price_per_night, currency_code,
  max_guests, bed_config, amenities, images, status, created_at`

// Suffix with an IN (...) list built by inPlaceholders.
const listActiveRoomsPrefix = "SELECT " + roomColumns + "\nFROM rooms\nWHERE status = 'active' AND property_id IN "

const listActiveRoomsByIDPrefix = "SELECT " + roomColumns + "\nFROM rooms\nWHERE status = 'active' AND property_id = ? AND id IN "

const getRoomSQL = "SELECT " + roomColumns + "\nFROM rooms\nWHERE property_id = ? AND id = ?"

const listGuestTiersSQL = `
SELECT room_id, min_guests, max_guests, price_per_night
FROM room_guest_tiers
WHERE room_id = ?
ORDER BY min_guests, id
`

const listDateOverridesSQL = "SELECT room_id, `date`, price\nFROM room_date_pricing\nWHERE room_id = ? AND `date` >= ? AND `date` < ?\nORDER BY `date`"

// -----------------------------------------------------------------------------
// BOOKINGS & GUESTS
// -----------------------------------------------------------------------------

const bookingColumns = `b.id, b.property_id, b.room_id, b.guest_id, g.name, b.check_in, b.check_out,
  b.total_price, b.status, b.ai_handled, b.source, b.conversation_id, b.created_at`

const listConflictsSQL = "SELECT " + bookingColumns + `
FROM bookings b
LEFT JOIN guests g ON g.id = b.guest_id
WHERE b.room_id = ? AND b.status <> 'cancelled' AND b.check_in < ? AND b.check_out > ?
ORDER BY b.check_in`

const getBookingSQL = "SELECT " + bookingColumns + `
FROM bookings b
LEFT JOIN guests g ON g.id = b.guest_id
WHERE b.id = ?`

// Serializes booking writers on one room until commit.
const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

// BINARY keeps the name match case-sensitive under a case-insensitive collation.
const findGuestSQL = `
SELECT id FROM guests
WHERE property_id = ? AND BINARY name = ?
ORDER BY created_at, id
LIMIT 1`

const findGuestByEmailSQL = `
SELECT id FROM guests
WHERE property_id = ? AND BINARY name = ? AND email = ?
ORDER BY created_at, id
LIMIT 1`

const insertGuestSQL = `
INSERT INTO guests (id, property_id, name, email)
VALUES (?, ?, ?, ?)`

const insertBookingSQL = `
INSERT INTO bookings
  (id, property_id, room_id, guest_id, check_in, check_out, total_price, status, ai_handled, source, conversation_id, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// -----------------------------------------------------------------------------
// AUDIT LOG
// -----------------------------------------------------------------------------

const insertAuditSQL = `
INSERT INTO audit_log
  (id, property_id, conversation_id, source, tool_name, description, status, request_payload, response_payload, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const listAuditPrefix = `
SELECT id, property_id, conversation_id, source, tool_name, description, status,
  request_payload, response_payload, created_at
FROM audit_log
WHERE property_id = ?`

// -----------------------------------------------------------------------------
// CURRENCIES & EMBEDDINGS
// -----------------------------------------------------------------------------

const currencyDisplaysPrefix = "SELECT code, display\nFROM currencies\nWHERE code IN "

const listEmbeddingsSQL = `
SELECT id, property_id, source_type, source_id, chunk_index, content, metadata, embedding, model, updated_at
FROM embeddings
WHERE property_id = ?
ORDER BY source_type, source_id, chunk_index`

const upsertEmbeddingSQL = `
INSERT INTO embeddings
  (id, property_id, source_type, source_id, chunk_index, content, metadata, embedding, model)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  property_id = VALUES(property_id),
  content     = VALUES(content),
  metadata    = VALUES(metadata),
  embedding   = VALUES(embedding),
  model       = VALUES(model),
  updated_at  = CURRENT_TIMESTAMP`
