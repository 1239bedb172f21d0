package chat

const getChatsQuery = `query GetChats($userId: uuid!) {
  chats(where: {user_id: {_eq: $userId}}, order_by: {updated_at: desc}) {
    id
    title
    created_at
    updated_at
  }
}`

const getMessagesSubscription = `subscription GetMessages($chatId: uuid!) {
  messages(where: {chat_id: {_eq: $chatId}}, order_by: {created_at: asc}) {
    id
    text
    created_at
    user_id
  }
}`

const insertChatMutation = `mutation InsertChat($title: String!, $userId: uuid!) {
  insert_chats_one(object: {title: $title, user_id: $userId}) {
    id
    title
    created_at
  }
}`

const insertMessageMutation = `mutation InsertMessage($chatId: uuid!, $content: String!) {
  insert_messages_one(object: {chat_id: $chatId, text: $content}) {
    id
    text
    created_at
    user_id
  }
}`

const sendMessageMutation = `mutation SendMessage($input: SendMessageInput!) {
  sendMessage(input: $input) {
    response_text
  }
}`

const updateChatTitleMutation = `mutation UpdateChatTitle($chatId: uuid!, $title: String!) {
  update_chats_by_pk(pk_columns: {id: $chatId}, _set: {title: $title}) {
    id
    title
  }
}`
